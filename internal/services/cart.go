package services

import (
	"techypad/internal/domain"
	"techypad/internal/pricing"
)

// Cart holds at most one line. Stored prices are informational; totals and
// charges always come from the registry.
type Cart struct {
	reg   *pricing.Registry
	items []domain.CartItem
}

func NewCart(reg *pricing.Registry, items ...domain.CartItem) *Cart {
	c := &Cart{reg: reg}
	if len(items) > 0 {
		c.items = append(c.items, items[0])
	}
	return c
}

// AddItem is a no-op when the cart is full or the id is not registered.
func (c *Cart) AddItem(candidate domain.CartItem) bool {
	if len(c.items) > 0 {
		return false
	}
	price, err := c.reg.GetPrice(candidate.ID)
	if err != nil {
		return false
	}
	p := c.reg.Product()
	c.items = append(c.items, domain.CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    price,
		Quantity: 1,
		Image:    p.Image,
	})
	return true
}

func (c *Cart) RemoveItem(id string) {
	out := c.items[:0]
	for _, it := range c.items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	c.items = out
}

func (c *Cart) Clear() { c.items = nil }

func (c *Cart) Items() []domain.CartItem {
	return append([]domain.CartItem(nil), c.items...)
}

// Line returns the single cart line or nil.
func (c *Cart) Line() *domain.CartItem {
	if len(c.items) == 0 {
		return nil
	}
	it := c.items[0]
	return &it
}

func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, it := range c.items {
		price, err := c.reg.GetPrice(it.ID)
		if err != nil {
			continue
		}
		total += price * int64(it.Quantity)
	}
	return total
}

func (c *Cart) IsInCart(id string) bool {
	for _, it := range c.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Empty() bool { return len(c.items) == 0 }
