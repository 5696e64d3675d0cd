package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techypad/internal/domain"
	"techypad/internal/realtime"
)

func newDecoder(t *testing.T) *realtime.RedisFeed {
	t.Helper()
	// no connection is made until Publish or Subscribe
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	f, err := realtime.NewRedisFeed(client, "")
	require.NoError(t, err)
	return f
}

func TestRedisFeedDecodeAcceptsPublishedShape(t *testing.T) {
	f := newDecoder(t)
	ev := realtime.Event{
		Type:  realtime.Update,
		Table: realtime.OrdersTable,
		New: &domain.Order{
			ID: "row-1", OrderID: "ORD-1", CustomerEmail: "a@b.in",
			ProductName: "Techy Pad", ProductPrice: 6499, Quantity: 1, TotalAmount: 6499,
			OrderStatus: domain.StatusShipped, UpdatedAt: time.Now().UTC(),
		},
	}
	b, err := json.Marshal(ev)
	require.NoError(t, err)

	got, err := f.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, realtime.Update, got.Type)
	assert.Equal(t, domain.StatusShipped, got.New.OrderStatus)
}

func TestRedisFeedDecodeRejectsMalformed(t *testing.T) {
	f := newDecoder(t)
	cases := map[string]string{
		"not json":       `{`,
		"unknown type":   `{"eventType":"TRUNCATE","table":"orders"}`,
		"insert no row":  `{"eventType":"INSERT","table":"orders"}`,
		"delete no old":  `{"eventType":"DELETE","table":"orders","new":{"id":"x","order_id":"o","customer_email":"e","order_status":"pending","total_amount":1,"updated_at":"t"}}`,
		"bad status":     `{"eventType":"INSERT","table":"orders","new":{"id":"x","order_id":"o","customer_email":"e","order_status":"lost","total_amount":1,"updated_at":"t"}}`,
		"negative total": `{"eventType":"INSERT","table":"orders","new":{"id":"x","order_id":"o","customer_email":"e","order_status":"pending","total_amount":-5,"updated_at":"t"}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.Decode([]byte(payload))
			assert.Error(t, err)
		})
	}
}
