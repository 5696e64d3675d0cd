package handlers

import (
	"github.com/gofiber/fiber/v2"

	"techypad/internal/currency"
	applog "techypad/internal/log"
	"techypad/internal/pricing"
	"techypad/internal/services"
)

type CartHandler struct {
	Cart    *services.CartService
	Auth    *services.AuthService
	Cookies Cookies
}

// POST /cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := h.Cookies.ensureSID(c)
	productID := c.FormValue("productId")
	if productID == "" {
		productID = pricing.ProductID
	}
	if h.Auth.HasOrdered(c.UserContext(), currentUser(c)) {
		applog.Info(c, "cart.add.refused", map[string]any{"reason": "already_ordered"})
		return c.Redirect("/?notice=ordered")
	}
	changed, err := h.Cart.Add(c.UserContext(), sid, productID)
	if err != nil {
		applog.Error(c, "cart.add.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not update your cart"})
	}
	if !changed && !h.Cart.Reg.Known(productID) {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
	}
	return c.Redirect("/cart")
}

// POST /cart/remove
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := h.Cookies.ensureSID(c)
	productID := c.FormValue("productId")
	if productID == "" {
		productID = pricing.ProductID
	}
	if err := h.Cart.Remove(c.UserContext(), sid, productID); err != nil {
		applog.Error(c, "cart.remove.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not update your cart"})
	}
	return c.Redirect("/cart")
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	sid := h.Cookies.ensureSID(c)
	cart, err := h.Cart.Load(c.UserContext(), sid)
	if err != nil {
		applog.Error(c, "cart.load.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	code := c.Cookies(cookieCurrency)
	return render(c, "cart", fiber.Map{
		"Items":      cart.Items(),
		"Count":      cart.ItemCount(),
		"Total":      currency.Format(cart.TotalPrice(), code),
		"TotalINR":   currency.Format(cart.TotalPrice(), currency.Base),
		"ShowINR":    currency.Lookup(code).Code != currency.Base,
		"HasOrdered": h.Auth.HasOrdered(c.UserContext(), currentUser(c)),
	})
}
