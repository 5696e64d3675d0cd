package services

import (
	"context"
	"errors"
	"strings"

	"techypad/internal/domain"
	"techypad/internal/validate"
)

var (
	ErrNotCancellable = errors.New("order can no longer be cancelled")
	ErrNotOwner       = errors.New("order belongs to another account")
	ErrInvalidStatus  = errors.New("unknown order status")
	ErrInvalidLink    = errors.New("tracking link is not valid")
	ErrOrderUpdate    = errors.New("order could not be updated")
)

// OrderService holds the order mutations offered to customers and admins.
// Each write goes through a store scoped to that call; lookups read the
// table directly.
type OrderService struct {
	Table OrderTable
}

func NewOrderService(table OrderTable) *OrderService {
	return &OrderService{Table: table}
}

func (s *OrderService) store() *OrderStore { return NewOrderStore(s.Table, nil) }

// CancelOwn cancels an order placed with user's e-mail while it has not shipped.
func (s *OrderService) CancelOwn(ctx context.Context, user *domain.User, id string) (*domain.Order, error) {
	if user == nil {
		return nil, ErrNotSignedIn
	}
	o, err := s.Table.SelectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(o.CustomerEmail, user.Email) {
		return nil, ErrNotOwner
	}
	if !o.OrderStatus.CustomerCancellable() {
		return nil, ErrNotCancellable
	}
	if !s.store().Cancel(ctx, id) {
		return nil, ErrOrderUpdate
	}
	return s.Table.SelectByID(ctx, id)
}

// SetStatus applies raw, which is a status name or "next" for the following
// status in the cycle.
func (s *OrderService) SetStatus(ctx context.Context, id, raw string) (*domain.Order, error) {
	st, ok := validate.OrderStatus(raw)
	next := strings.EqualFold(strings.TrimSpace(raw), "next")
	if !ok && !next {
		return nil, ErrInvalidStatus
	}
	o, err := s.Table.SelectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if next {
		st = o.OrderStatus.Next()
	}
	if !s.store().UpdateStatus(ctx, id, st) {
		return nil, ErrOrderUpdate
	}
	return s.Table.SelectByID(ctx, id)
}

// SetTracking stores link; an empty link clears it.
func (s *OrderService) SetTracking(ctx context.Context, id, link string) (*domain.Order, error) {
	link, ok := validate.TrackingLink(link)
	if !ok {
		return nil, ErrInvalidLink
	}
	if _, err := s.Table.SelectByID(ctx, id); err != nil {
		return nil, err
	}
	if !s.store().UpdateTrackingLink(ctx, id, link) {
		return nil, ErrOrderUpdate
	}
	return s.Table.SelectByID(ctx, id)
}

func (s *OrderService) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.Table.SelectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus == domain.StatusCancelled {
		return nil, ErrNotCancellable
	}
	if !s.store().Cancel(ctx, id) {
		return nil, ErrOrderUpdate
	}
	return s.Table.SelectByID(ctx, id)
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.Table.SelectByID(ctx, id)
}
