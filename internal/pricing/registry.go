// Package pricing holds the product table every charged amount is derived from.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"techypad/internal/domain"
)

const ProductID = "techypad-pro"

var ErrUnknownProduct = errors.New("unknown product")

// DefaultProduct is the launch configuration of the Techy Pad.
var DefaultProduct = domain.Product{
	ID:            ProductID,
	Name:          "Techy Pad",
	OriginalPrice: 10000,
	SalePrice:     6499,
	Currency:      "INR",
	Image:         "/static/img/techypad.png",
}

// Registry maps the single registered product id to its canonical price.
// It is immutable once built.
type Registry struct {
	product domain.Product
}

func NewRegistry(p domain.Product) *Registry { return &Registry{product: p} }

// WithSalePrice returns the default product priced at salePrice.
func WithSalePrice(salePrice int64) *Registry {
	p := DefaultProduct
	if salePrice > 0 {
		p.SalePrice = salePrice
	}
	return NewRegistry(p)
}

func (r *Registry) Product() domain.Product { return r.product }

func (r *Registry) GetPrice(productID string) (int64, error) {
	if productID != r.product.ID {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}
	return r.product.SalePrice, nil
}

// ValidateClaim is true only when claimed is exactly the registered price.
func (r *Registry) ValidateClaim(productID string, claimed int64) bool {
	price, err := r.GetPrice(productID)
	if err != nil {
		return false
	}
	return price == claimed
}

func (r *Registry) Known(productID string) bool {
	_, err := r.GetPrice(productID)
	return err == nil
}

func (r *Registry) DiscountPercent() int {
	p := r.product
	if p.OriginalPrice <= 0 {
		return 0
	}
	return int(math.Round(float64(p.OriginalPrice-p.SalePrice) / float64(p.OriginalPrice) * 100))
}
