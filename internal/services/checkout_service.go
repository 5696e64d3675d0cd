package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"techypad/internal/domain"
	applog "techypad/internal/log"
	"techypad/internal/payment"
	"techypad/internal/pricing"
	"techypad/internal/validate"
)

type CheckoutState string

const (
	StateIdle            CheckoutState = "idle"
	StateValidating      CheckoutState = "validating"
	StateAwaitingPayment CheckoutState = "awaiting_payment"
	StatePersisting      CheckoutState = "persisting"
	StateDone            CheckoutState = "done"
)

var (
	ErrNotSignedIn        = errors.New("sign in required")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrPriceTampered      = errors.New("cart price does not match the product price")
	ErrPaymentUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentDismissed   = errors.New("payment dismissed")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrOrderNotRecorded   = errors.New("payment captured but the order was not recorded")
	ErrUnknownAttempt     = errors.New("unknown checkout attempt")
)

// ValidationError carries the first failing rule per form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid checkout form: " + strings.Join(keys, ", ")
}

const attemptTTL = time.Hour

// Attempt is one pass through the checkout. It ends in StateDone, or back in
// StateIdle with Err set.
type Attempt struct {
	ID        string
	SessionID string
	User      domain.User
	Shipping  validate.Shipping
	State     CheckoutState
	Amount    int64
	OrderID   string
	PaymentID string
	Widget    *payment.Widget
	Order     *domain.Order
	Failure   *payment.FailureInfo
	Err       error
	Started   time.Time
}

type CheckoutService struct {
	Reg     *pricing.Registry
	Carts   *CartService
	Auth    *AuthService
	Orders  OrderTable
	Gateway payment.Gateway
	Now     func() time.Time

	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewCheckoutService(reg *pricing.Registry, carts *CartService, auth *AuthService, orders OrderTable, gw payment.Gateway) *CheckoutService {
	return &CheckoutService{Reg: reg, Carts: carts, Auth: auth, Orders: orders, Gateway: gw, attempts: map[string]*Attempt{}}
}

func (s *CheckoutService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Precheck is the gate in front of the checkout page.
func (s *CheckoutService) Precheck(ctx context.Context, sessionID string, user *domain.User) (*Cart, error) {
	if user == nil {
		return nil, ErrNotSignedIn
	}
	cart, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return nil, ErrEmptyCart
	}
	return cart, nil
}

// Begin validates the form and the cart and opens the payment widget.
func (s *CheckoutService) Begin(ctx context.Context, sessionID string, user *domain.User, form validate.Shipping) (*Attempt, error) {
	cart, err := s.Precheck(ctx, sessionID, user)
	if err != nil {
		return nil, err
	}
	if s.Auth != nil && s.Auth.HasOrdered(ctx, user) {
		return nil, ErrAlreadyOrdered
	}

	a := &Attempt{ID: uuid.NewString(), SessionID: sessionID, User: *user, State: StateValidating, Started: s.now()}

	if fields := validate.Checkout(&form); fields != nil {
		a.State = StateIdle
		return nil, &ValidationError{Fields: fields}
	}
	a.Shipping = form

	line := cart.Line()
	if !s.Reg.ValidateClaim(line.ID, line.Price) {
		a.State = StateIdle
		if err := s.Carts.Clear(ctx, sessionID); err != nil {
			applog.Error(nil, "checkout.cart.clear.fail", err, nil)
		}
		applog.Security(nil, "checkout.price.tamper", map[string]any{"product": line.ID, "claimed": line.Price})
		return nil, ErrPriceTampered
	}
	price, err := s.Reg.GetPrice(line.ID)
	if err != nil {
		return nil, err
	}
	a.Amount = price
	a.OrderID = fmt.Sprintf("ORD-%d", a.Started.UnixMilli())

	product := s.Reg.Product()
	a.State = StateAwaitingPayment
	w, err := s.Gateway.Open(ctx, payment.Options{
		AmountMinorUnits: price * 100,
		Currency:         product.Currency,
		Description:      "Pre-Order Payment",
		Prefill:          payment.Prefill{Name: form.FullName(), Email: form.Email, Phone: form.Phone},
		OnSuccess:        func(ctx context.Context, paymentID string) { s.persist(ctx, a, paymentID) },
		OnDismiss: func(context.Context) {
			a.State, a.Err = StateIdle, ErrPaymentDismissed
		},
		OnFailure: func(_ context.Context, info payment.FailureInfo) {
			a.State, a.Err, a.Failure = StateIdle, ErrPaymentFailed, &info
		},
	})
	if err != nil {
		a.State = StateIdle
		applog.Error(nil, "checkout.payment.open.fail", err, map[string]any{"order_id": a.OrderID})
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	a.Widget = w

	s.mu.Lock()
	s.sweepLocked()
	s.attempts[a.ID] = a
	s.mu.Unlock()
	return a, nil
}

// Attempt returns an open attempt owned by sessionID.
func (s *CheckoutService) Attempt(id, sessionID string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.SessionID != sessionID || a.State != StateAwaitingPayment {
		return nil, ErrUnknownAttempt
	}
	return a, nil
}

// Resolve hands the widget outcome to the gateway and returns the finished attempt.
func (s *CheckoutService) Resolve(ctx context.Context, id, sessionID string, out payment.Outcome) (*Attempt, error) {
	s.mu.Lock()
	a, ok := s.attempts[id]
	if ok && a.SessionID == sessionID && a.State == StateAwaitingPayment {
		delete(s.attempts, id)
	} else {
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownAttempt
	}

	if err := s.Gateway.Resolve(ctx, a.Widget.ID, out); err != nil {
		if a.Err == nil {
			a.State, a.Err = StateIdle, ErrPaymentFailed
		}
		applog.Security(nil, "checkout.payment.reject", map[string]any{"order_id": a.OrderID, "err": err.Error()})
	}
	if a.State == StateDone {
		return a, nil
	}
	if a.Err == nil {
		a.State, a.Err = StateIdle, ErrPaymentFailed
	}
	return a, a.Err
}

func (s *CheckoutService) persist(ctx context.Context, a *Attempt, paymentID string) {
	a.State = StatePersisting
	a.PaymentID = paymentID

	product := s.Reg.Product()
	f := a.Shipping
	draft := domain.Order{
		OrderID:         a.OrderID,
		CustomerName:    clean(f.FullName(), 100),
		CustomerEmail:   clean(a.User.Email, 100),
		CustomerPhone:   clean(f.Phone, 15),
		ShippingAddress: clean(f.Address, 200),
		City:            clean(f.City, 50),
		State:           clean(f.State, 50),
		ZipCode:         clean(f.Zip, 6),
		Country:         clean(f.Country, 50),
		ProductName:     product.Name,
		ProductPrice:    a.Amount,
		Quantity:        1,
		TotalAmount:     a.Amount,
		PaymentID:       paymentID,
		PaymentStatus:   domain.PaymentCompleted,
		OrderStatus:     domain.StatusConfirmed,
	}

	row := NewOrderStore(s.Orders, nil).Insert(ctx, draft)
	if row == nil {
		a.State, a.Err = StateIdle, ErrOrderNotRecorded
		applog.Error(nil, "checkout.order.not_recorded", ErrOrderNotRecorded, map[string]any{
			"order_id": a.OrderID, "payment_id": paymentID, "email": a.User.Email,
		})
		return
	}

	if err := s.Carts.Clear(ctx, a.SessionID); err != nil {
		applog.Error(nil, "checkout.cart.clear.fail", err, map[string]any{"order_id": a.OrderID})
	}
	if s.Auth != nil {
		if err := s.Auth.MarkOrdered(ctx, a.User.Email); err != nil {
			applog.Error(nil, "ordered_users.write.fail", err, map[string]any{"order_id": a.OrderID})
		}
	}
	a.Order = row
	a.State = StateDone
	applog.Info(nil, "checkout.order.recorded", map[string]any{"order_id": a.OrderID, "payment_id": paymentID, "total": a.Amount})
}

func (s *CheckoutService) sweepLocked() {
	cutoff := s.now().Add(-attemptTTL)
	for id, a := range s.attempts {
		if a.Started.Before(cutoff) {
			delete(s.attempts, id)
		}
	}
}

// clean drops control characters, trims, and cuts to n runes.
func clean(v string, n int) string {
	v = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)
	return validate.Truncate(strings.TrimSpace(v), n)
}
