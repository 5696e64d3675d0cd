package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	razorpayAPI    = "https://api.razorpay.com/v1"
	razorpayScript = "https://checkout.razorpay.com/v1/checkout.js"
)

// Razorpay creates a gateway order over the REST API before the widget opens
// and checks the returned signature before reporting success.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Client    *http.Client

	reg registry
}

func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   razorpayAPI,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (r *Razorpay) Open(ctx context.Context, opts Options) (*Widget, error) {
	if r.KeyID == "" || r.KeySecret == "" || opts.AmountMinorUnits <= 0 {
		return nil, ErrUnavailable
	}
	id := uuid.NewString()
	order, err := r.createOrder(ctx, opts, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	w := Widget{
		ID:               id,
		Provider:         "razorpay",
		KeyID:            r.KeyID,
		ProviderOrderID:  order.ID,
		ScriptURL:        razorpayScript,
		AmountMinorUnits: opts.AmountMinorUnits,
		Currency:         opts.Currency,
		Description:      opts.Description,
		Prefill:          opts.Prefill,
	}
	r.reg.put(w, opts)
	return &w, nil
}

func (r *Razorpay) Resolve(ctx context.Context, widgetID string, out Outcome) error {
	p, ok := r.reg.take(widgetID)
	if !ok {
		return ErrUnknownWidget
	}
	return dispatch(ctx, p, out, r.verify)
}

func (r *Razorpay) createOrder(ctx context.Context, opts Options, receipt string) (*razorpayOrder, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   opts.AmountMinorUnits,
		"currency": opts.Currency,
		"receipt":  receipt,
		"notes":    map[string]string{"description": opts.Description, "email": opts.Prefill.Email},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(r.KeyID, r.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create order: status %d", resp.StatusCode)
	}
	var o razorpayOrder
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if o.ID == "" {
		return nil, errors.New("create order: empty id")
	}
	return &o, nil
}

func (r *Razorpay) verify(w Widget, out Outcome) error {
	orderID := out.ProviderOrderID
	if orderID == "" {
		orderID = w.ProviderOrderID
	}
	if orderID != w.ProviderOrderID {
		return errors.New("order id mismatch")
	}
	if !hmac.Equal([]byte(Sign(r.KeySecret, orderID, out.PaymentID)), []byte(out.Signature)) {
		return errors.New("signature mismatch")
	}
	return nil
}

// Sign is the checkout signature: hex HMAC-SHA256 of "order_id|payment_id".
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
