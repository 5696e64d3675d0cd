package services

import (
	"techypad/internal/currency"
	"techypad/internal/domain"
	"techypad/internal/pricing"
)

// Landing is everything the product page shows.
type Landing struct {
	Product       domain.Product
	Currency      currency.Currency
	Currencies    []currency.Currency
	SalePrice     string
	OriginalPrice string
	Discount      int
	InCart        bool
	Ordered       bool
	CartCount     int
}

type Page struct {
	Slug  string
	Title string
	Body  []string
}

type CatalogService struct {
	Reg          *pricing.Registry
	SupportEmail string
}

func NewCatalogService(reg *pricing.Registry, supportEmail string) *CatalogService {
	return &CatalogService{Reg: reg, SupportEmail: supportEmail}
}

// Landing formats the product for code. Unknown codes render in INR.
func (s *CatalogService) Landing(cart *Cart, ordered bool, code string) Landing {
	p := s.Reg.Product()
	cur := currency.Lookup(code)
	l := Landing{
		Product:       p,
		Currency:      cur,
		Currencies:    currency.All(),
		SalePrice:     currency.Format(p.SalePrice, cur.Code),
		OriginalPrice: currency.Format(p.OriginalPrice, cur.Code),
		Discount:      s.Reg.DiscountPercent(),
		Ordered:       ordered,
	}
	if cart != nil {
		l.InCart = cart.IsInCart(p.ID)
		l.CartCount = cart.ItemCount()
	}
	return l
}

func (s *CatalogService) Page(slug string) (Page, bool) {
	switch slug {
	case "returns":
		return Page{Slug: slug, Title: "Returns & Refunds", Body: []string{
			"Pre-orders can be cancelled from your orders page until the device ships.",
			"Refunds go back to the original payment method within 7 working days.",
			"Delivered devices may be returned unused within 10 days of delivery.",
		}}, true
	case "terms":
		return Page{Slug: slug, Title: "Terms of Sale", Body: []string{
			"A pre-order reserves one Techy Pad per account at the sale price shown at checkout.",
			"Prices are charged in Indian Rupees. Other currencies are shown for reference only.",
		}}, true
	case "privacy":
		return Page{Slug: slug, Title: "Privacy", Body: []string{
			"We store your name, contact details and shipping address to fulfil your order.",
			"Payment details are handled by the payment provider and never reach our servers.",
		}}, true
	case "contact":
		return Page{Slug: slug, Title: "Contact", Body: []string{
			"Write to " + s.SupportEmail + " and include your order id if you have one.",
		}}, true
	case "setup":
		return Page{Slug: slug, Title: "Setting up your Techy Pad", Body: []string{
			"Charge the device fully before first use.",
			"Hold the power button for three seconds and follow the on-screen steps.",
			"Sign in with the e-mail you used for your pre-order to register the warranty.",
		}}, true
	}
	return Page{}, false
}
