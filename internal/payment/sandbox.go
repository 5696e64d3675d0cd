package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Sandbox accepts every outcome the browser reports. It backs local runs and tests.
type Sandbox struct {
	reg registry
}

func NewSandbox() *Sandbox { return &Sandbox{} }

func (s *Sandbox) Open(_ context.Context, opts Options) (*Widget, error) {
	if opts.AmountMinorUnits <= 0 {
		return nil, ErrUnavailable
	}
	w := Widget{
		ID:               uuid.NewString(),
		Provider:         "sandbox",
		ProviderOrderID:  "sbx_order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		AmountMinorUnits: opts.AmountMinorUnits,
		Currency:         opts.Currency,
		Description:      opts.Description,
		Prefill:          opts.Prefill,
	}
	s.reg.put(w, opts)
	return &w, nil
}

func (s *Sandbox) Resolve(ctx context.Context, widgetID string, out Outcome) error {
	p, ok := s.reg.take(widgetID)
	if !ok {
		return ErrUnknownWidget
	}
	if out.Kind == OutcomeSuccess && out.PaymentID == "" {
		out.PaymentID = NewSandboxPaymentID()
	}
	return dispatch(ctx, p, out, nil)
}

func NewSandboxPaymentID() string {
	return "pay_sbx_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
