package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"techypad/internal/domain"
	"techypad/internal/realtime"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepo is the orders table. Rows are inserted and patched, never deleted.
// Every acknowledged write is published to the change feed.
type OrderRepo struct {
	db   *sqlx.DB
	feed realtime.Publisher
}

func NewOrderRepo(db *sqlx.DB, feed realtime.Publisher) *OrderRepo {
	return &OrderRepo{db: db, feed: feed}
}

const orderCols = `id, order_id, customer_name, customer_email, customer_phone,
	shipping_address, city, state, zip_code, country,
	product_name, product_price, quantity, total_amount,
	payment_id, payment_status, order_status, tracking_link,
	created_at, updated_at`

func (r *OrderRepo) SelectAll(ctx context.Context) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC, order_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return out, nil
}

func (r *OrderRepo) SelectByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT `+orderCols+` FROM orders
		WHERE LOWER(customer_email) = LOWER(?)
		ORDER BY created_at DESC, order_id DESC`), email)
	if err != nil {
		return nil, fmt.Errorf("select orders by email: %w", err)
	}
	return out, nil
}

func (r *OrderRepo) SelectByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, r.db.Rebind(`SELECT `+orderCols+` FROM orders WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order %s: %w", id, err)
	}
	return &o, nil
}

// InsertOne assigns the row id and timestamps and returns the stored row.
func (r *OrderRepo) InsertOne(ctx context.Context, o domain.Order) (*domain.Order, error) {
	o.ID = uuid.NewString()
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO orders(`+orderCols+`)
		VALUES(:id, :order_id, :customer_name, :customer_email, :customer_phone,
			:shipping_address, :city, :state, :zip_code, :country,
			:product_name, :product_price, :quantity, :total_amount,
			:payment_id, :payment_status, :order_status, :tracking_link,
			:created_at, :updated_at)`, o)
	if err != nil {
		return nil, fmt.Errorf("insert order %s: %w", o.OrderID, err)
	}
	r.publish(ctx, realtime.Event{Type: realtime.Insert, Table: realtime.OrdersTable, New: &o})
	return &o, nil
}

// UpdateByID applies the non-nil fields of p and returns the row as stored.
func (r *OrderRepo) UpdateByID(ctx context.Context, id string, p domain.OrderPatch) (*domain.Order, error) {
	old, err := r.SelectByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{now()}
	if p.OrderStatus != nil {
		if !p.OrderStatus.Valid() {
			return nil, fmt.Errorf("update order %s: invalid status %q", id, *p.OrderStatus)
		}
		sets = append(sets, "order_status = ?")
		args = append(args, string(*p.OrderStatus))
	}
	if p.TrackingLink != nil {
		sets = append(sets, "tracking_link = ?")
		args = append(args, *p.TrackingLink)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrOrderNotFound
	}

	updated, err := r.SelectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, realtime.Event{Type: realtime.Update, Table: realtime.OrdersTable, New: updated, Old: old})
	return updated, nil
}

func (r *OrderRepo) publish(ctx context.Context, ev realtime.Event) {
	if r.feed == nil {
		return
	}
	// publish errors are dropped; the row is already committed
	_ = r.feed.Publish(ctx, ev)
}

func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
