package services

import (
	"context"
	"errors"

	"techypad/internal/domain"
	"techypad/internal/pricing"
	"techypad/internal/repos"
)

var ErrAlreadyOrdered = errors.New("this account already has a pre-order")

// CartService persists one Cart per anonymous browser session.
type CartService struct {
	Carts *repos.CartRepo
	Reg   *pricing.Registry
}

func NewCartService(carts *repos.CartRepo, reg *pricing.Registry) *CartService {
	return &CartService{Carts: carts, Reg: reg}
}

func (s *CartService) Load(ctx context.Context, sessionID string) (*Cart, error) {
	it, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return NewCart(s.Reg), nil
	}
	return NewCart(s.Reg, *it), nil
}

func (s *CartService) Save(ctx context.Context, sessionID string, c *Cart) error {
	return s.Carts.Save(ctx, sessionID, c.Line())
}

// Add puts productID in the cart. It reports whether the cart changed.
func (s *CartService) Add(ctx context.Context, sessionID, productID string) (bool, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !c.AddItem(domain.CartItem{ID: productID}) {
		return false, nil
	}
	return true, s.Save(ctx, sessionID, c)
}

func (s *CartService) Remove(ctx context.Context, sessionID, productID string) error {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	c.RemoveItem(productID)
	return s.Save(ctx, sessionID, c)
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.Carts.Delete(ctx, sessionID)
}
