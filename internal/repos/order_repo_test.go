package repos_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techypad/internal/domain"
	"techypad/internal/realtime"
	"techypad/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type recorder struct{ events []realtime.Event }

func (r *recorder) Publish(_ context.Context, ev realtime.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func sample(orderID, email string) domain.Order {
	return domain.Order{
		OrderID:         orderID,
		CustomerName:    "Asha Rao",
		CustomerEmail:   email,
		CustomerPhone:   "9876543210",
		ShippingAddress: "12 MG Road",
		City:            "Bengaluru",
		State:           "Karnataka",
		ZipCode:         "560038",
		Country:         "India",
		ProductName:     "Techy Pad",
		ProductPrice:    6499,
		Quantity:        1,
		TotalAmount:     6499,
		PaymentID:       "pay_1",
		PaymentStatus:   domain.PaymentCompleted,
		OrderStatus:     domain.StatusConfirmed,
	}
}

func TestOrderRepoInsertAndSelect(t *testing.T) {
	db := memdb(t)
	rec := &recorder{}
	r := repos.NewOrderRepo(db, rec)
	ctx := context.Background()

	row, err := r.InsertOne(ctx, sample("ORD-1", "Asha@Example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)
	assert.False(t, row.CreatedAt.IsZero())
	assert.Equal(t, row.CreatedAt, row.UpdatedAt)

	require.Len(t, rec.events, 1)
	assert.Equal(t, realtime.Insert, rec.events[0].Type)
	assert.Equal(t, realtime.OrdersTable, rec.events[0].Table)
	assert.Equal(t, row.ID, rec.events[0].New.ID)

	mine, err := r.SelectByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "ORD-1", mine[0].OrderID)
	assert.Nil(t, mine[0].TrackingLink)

	none, err := r.SelectByEmail(ctx, "other@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = r.SelectByID(ctx, "missing")
	assert.ErrorIs(t, err, repos.ErrOrderNotFound)
}

func TestOrderRepoDuplicateOrderIDIsRejected(t *testing.T) {
	db := memdb(t)
	r := repos.NewOrderRepo(db, nil)
	ctx := context.Background()

	_, err := r.InsertOne(ctx, sample("ORD-1", "a@x.test"))
	require.NoError(t, err)
	_, err = r.InsertOne(ctx, sample("ORD-1", "b@x.test"))
	assert.Error(t, err)
}

func TestOrderRepoUpdatePublishesOldAndNew(t *testing.T) {
	db := memdb(t)
	rec := &recorder{}
	r := repos.NewOrderRepo(db, rec)
	ctx := context.Background()

	row, err := r.InsertOne(ctx, sample("ORD-1", "a@x.test"))
	require.NoError(t, err)

	st := domain.StatusShipped
	link := "https://track.example/ORD-1"
	got, err := r.UpdateByID(ctx, row.ID, domain.OrderPatch{OrderStatus: &st, TrackingLink: &link})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.OrderStatus)
	assert.Equal(t, link, got.Tracking())
	assert.False(t, got.UpdatedAt.Before(row.UpdatedAt))

	require.Len(t, rec.events, 2)
	ev := rec.events[1]
	assert.Equal(t, realtime.Update, ev.Type)
	assert.Equal(t, domain.StatusConfirmed, ev.Old.OrderStatus)
	assert.Equal(t, domain.StatusShipped, ev.New.OrderStatus)

	bad := domain.OrderStatus("lost")
	_, err = r.UpdateByID(ctx, row.ID, domain.OrderPatch{OrderStatus: &bad})
	assert.Error(t, err)

	_, err = r.UpdateByID(ctx, "missing", domain.OrderPatch{OrderStatus: &st})
	assert.ErrorIs(t, err, repos.ErrOrderNotFound)
	assert.Len(t, rec.events, 2)
}

func TestOrderRepoTransportErrors(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	rec := &recorder{}
	r := repos.NewOrderRepo(sqlx.NewDb(mockDB, "sqlmock"), rec)
	ctx := context.Background()
	down := errors.New("connection refused")

	mock.ExpectQuery("FROM orders ORDER BY created_at DESC").WillReturnError(down)
	_, err = r.SelectAll(ctx)
	assert.ErrorIs(t, err, down)

	mock.ExpectQuery("WHERE LOWER\\(customer_email\\)").WillReturnError(down)
	_, err = r.SelectByEmail(ctx, "a@x.test")
	assert.ErrorIs(t, err, down)

	mock.ExpectExec("INSERT INTO orders").WillReturnError(down)
	_, err = r.InsertOne(ctx, sample("ORD-1", "a@x.test"))
	assert.ErrorIs(t, err, down)

	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
