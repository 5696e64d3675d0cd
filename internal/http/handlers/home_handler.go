package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"techypad/internal/currency"
	applog "techypad/internal/log"
	"techypad/internal/services"
)

type HomeHandler struct {
	Catalog *services.CatalogService
	Cart    *services.CartService
	Auth    *services.AuthService
	Cookies Cookies
}

// GET /
func (h *HomeHandler) Home(c *fiber.Ctx) error {
	sid := h.Cookies.ensureSID(c)
	cart, err := h.Cart.Load(c.UserContext(), sid)
	if err != nil {
		applog.Error(c, "cart.load.fail", err, nil)
	}
	ordered := h.Auth.HasOrdered(c.UserContext(), currentUser(c))
	l := h.Catalog.Landing(cart, ordered, c.Cookies(cookieCurrency))
	return render(c, "home", fiber.Map{"L": l, "Notice": notice(c.Query("notice"))})
}

// GET /pages/:slug
func (h *HomeHandler) Page(c *fiber.Ctx) error {
	p, ok := h.Catalog.Page(strings.ToLower(c.Params("slug")))
	if !ok {
		return notFound(c, "Page not found")
	}
	return render(c, "page", fiber.Map{"Page": p})
}

// POST /currency
func (h *HomeHandler) SetCurrency(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.FormValue("currency")))
	if !currency.Supported(code) {
		applog.Security(c, "validation.fail", map[string]any{"field": "currency"})
		code = currency.Base
	}
	h.Cookies.set(c, cookieCurrency, code, time.Now().Add(365*24*time.Hour))
	return c.Redirect(safeNext(c.FormValue("next"), "/"))
}

// notice maps redirect codes to the banner shown on the landing page.
func notice(code string) string {
	switch code {
	case "tampered":
		return "Your cart was reset because its price no longer matched. Please add the Techy Pad again."
	case "ordered":
		return "You have already pre-ordered a Techy Pad with this account."
	case "signedout":
		return "You have been signed out."
	}
	return ""
}
