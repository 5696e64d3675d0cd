package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techypad/internal/payment"
)

type recorder struct {
	success  []string
	dismiss  int
	failures []payment.FailureInfo
}

func (r *recorder) options(amount int64) payment.Options {
	return payment.Options{
		AmountMinorUnits: amount,
		Currency:         "INR",
		Description:      "Techy Pad pre-order",
		Prefill:          payment.Prefill{Name: "Asha", Email: "asha@techypad.test", Phone: "9876543210"},
		OnSuccess:        func(_ context.Context, id string) { r.success = append(r.success, id) },
		OnDismiss:        func(context.Context) { r.dismiss++ },
		OnFailure:        func(_ context.Context, f payment.FailureInfo) { r.failures = append(r.failures, f) },
	}
}

func TestSandboxFiresExactlyOneCallback(t *testing.T) {
	ctx := context.Background()
	g := payment.NewSandbox()
	rec := &recorder{}

	w, err := g.Open(ctx, rec.options(649900))
	require.NoError(t, err)
	assert.Equal(t, int64(649900), w.AmountMinorUnits)
	assert.Equal(t, "asha@techypad.test", w.Prefill.Email)

	require.NoError(t, g.Resolve(ctx, w.ID, payment.Outcome{Kind: payment.OutcomeSuccess, PaymentID: "pay_1"}))
	assert.Equal(t, []string{"pay_1"}, rec.success)

	err = g.Resolve(ctx, w.ID, payment.Outcome{Kind: payment.OutcomeSuccess, PaymentID: "pay_2"})
	assert.ErrorIs(t, err, payment.ErrUnknownWidget)
	assert.Len(t, rec.success, 1)
}

func TestSandboxDismissAndFailure(t *testing.T) {
	ctx := context.Background()
	g := payment.NewSandbox()
	rec := &recorder{}

	w1, _ := g.Open(ctx, rec.options(100))
	require.NoError(t, g.Resolve(ctx, w1.ID, payment.Outcome{Kind: payment.OutcomeDismiss}))
	w2, _ := g.Open(ctx, rec.options(100))
	require.NoError(t, g.Resolve(ctx, w2.ID, payment.Outcome{Kind: payment.OutcomeFailure, Failure: payment.FailureInfo{Code: "BAD_REQUEST_ERROR"}}))

	assert.Equal(t, 1, rec.dismiss)
	require.Len(t, rec.failures, 1)
	assert.Equal(t, "BAD_REQUEST_ERROR", rec.failures[0].Code)
	assert.Empty(t, rec.success)
}

func TestSandboxRejectsZeroAmount(t *testing.T) {
	_, err := payment.NewSandbox().Open(context.Background(), payment.Options{})
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}

func TestRazorpayWithoutKeysIsUnavailable(t *testing.T) {
	_, err := payment.NewRazorpay("", "").Open(context.Background(), payment.Options{AmountMinorUnits: 100})
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}

func newRazorpayServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "shh" || r.URL.Path != "/orders" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_TEST123", "amount": body["amount"], "currency": body["currency"], "status": "created",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRazorpayVerifiesSignature(t *testing.T) {
	ctx := context.Background()
	srv := newRazorpayServer(t)
	g := payment.NewRazorpay("rzp_test_key", "shh")
	g.BaseURL = srv.URL
	rec := &recorder{}

	w, err := g.Open(ctx, rec.options(649900))
	require.NoError(t, err)
	assert.Equal(t, "order_TEST123", w.ProviderOrderID)
	assert.Equal(t, "rzp_test_key", w.KeyID)

	err = g.Resolve(ctx, w.ID, payment.Outcome{
		Kind: payment.OutcomeSuccess, PaymentID: "pay_ABC", ProviderOrderID: "order_TEST123", Signature: "forged",
	})
	assert.ErrorIs(t, err, payment.ErrVerification)
	assert.Empty(t, rec.success)
	require.Len(t, rec.failures, 1)

	w2, err := g.Open(ctx, rec.options(649900))
	require.NoError(t, err)
	err = g.Resolve(ctx, w2.ID, payment.Outcome{
		Kind: payment.OutcomeSuccess, PaymentID: "pay_ABC", ProviderOrderID: "order_TEST123",
		Signature: payment.Sign("shh", "order_TEST123", "pay_ABC"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pay_ABC"}, rec.success)
}

func TestRazorpayOrderAPIFailureIsUnavailable(t *testing.T) {
	srv := newRazorpayServer(t)
	g := payment.NewRazorpay("rzp_test_key", "wrong")
	g.BaseURL = srv.URL
	_, err := g.Open(context.Background(), payment.Options{AmountMinorUnits: 100, Currency: "INR"})
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}
