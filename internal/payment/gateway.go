// Package payment drives the hosted checkout widget. Open registers a
// one-shot widget with callbacks; the browser reports the outcome and
// Resolve verifies it and fires exactly one callback.
package payment

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrUnavailable   = errors.New("payment gateway unavailable")
	ErrUnknownWidget = errors.New("unknown or already resolved payment widget")
	ErrVerification  = errors.New("payment could not be verified")
)

type Prefill struct {
	Name  string
	Email string
	Phone string
}

type FailureInfo struct {
	Code        string
	Description string
	Reason      string
}

type Options struct {
	AmountMinorUnits int64
	Currency         string
	Description      string
	Prefill          Prefill

	OnSuccess func(ctx context.Context, paymentID string)
	OnDismiss func(ctx context.Context)
	OnFailure func(ctx context.Context, info FailureInfo)
}

// Widget is what the browser needs to open the checkout.
type Widget struct {
	ID               string
	Provider         string
	KeyID            string
	ProviderOrderID  string
	ScriptURL        string
	AmountMinorUnits int64
	Currency         string
	Description      string
	Prefill          Prefill
}

type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeDismiss OutcomeKind = "dismiss"
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the browser's report. Signature is checked by providers that sign results.
type Outcome struct {
	Kind            OutcomeKind
	PaymentID       string
	ProviderOrderID string
	Signature       string
	Failure         FailureInfo
}

type Gateway interface {
	Open(ctx context.Context, opts Options) (*Widget, error)
	Resolve(ctx context.Context, widgetID string, out Outcome) error
}

type pending struct {
	widget Widget
	opts   Options
}

// registry holds open widgets until their outcome arrives.
type registry struct {
	mu      sync.Mutex
	widgets map[string]pending
}

func (r *registry) put(w Widget, opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.widgets == nil {
		r.widgets = map[string]pending{}
	}
	r.widgets[w.ID] = pending{widget: w, opts: opts}
}

func (r *registry) take(id string) (pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.widgets[id]
	if ok {
		delete(r.widgets, id)
	}
	return p, ok
}

// dispatch fires the callback matching out. verify runs only for successes.
func dispatch(ctx context.Context, p pending, out Outcome, verify func(Widget, Outcome) error) error {
	switch out.Kind {
	case OutcomeSuccess:
		if out.PaymentID == "" {
			fail(ctx, p.opts, FailureInfo{Code: "MISSING_PAYMENT_ID", Description: "no payment id returned"})
			return ErrVerification
		}
		if verify != nil {
			if err := verify(p.widget, out); err != nil {
				fail(ctx, p.opts, FailureInfo{Code: "SIGNATURE_MISMATCH", Description: err.Error()})
				return ErrVerification
			}
		}
		if p.opts.OnSuccess != nil {
			p.opts.OnSuccess(ctx, out.PaymentID)
		}
	case OutcomeDismiss:
		if p.opts.OnDismiss != nil {
			p.opts.OnDismiss(ctx)
		}
	default:
		fail(ctx, p.opts, out.Failure)
	}
	return nil
}

func fail(ctx context.Context, opts Options, info FailureInfo) {
	if opts.OnFailure != nil {
		opts.OnFailure(ctx, info)
	}
}
