package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	cookieSID      = "sid"
	cookieAuth     = "auth"
	cookieAdminSID = "admin_sid"
	cookieCurrency = "currency"
)

// Cookies sets the storefront cookies with shared attributes.
type Cookies struct {
	Secure bool
}

func (k Cookies) set(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   k.Secure,
	})
}

func (k Cookies) clear(c *fiber.Ctx, name string) {
	k.set(c, name, "", time.Now().Add(-time.Hour))
}

// ensureSID returns the anonymous browser session that keys the cart.
func (k Cookies) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(cookieSID)
	if sid == "" {
		sid = uuid.NewString()
		k.set(c, cookieSID, sid, time.Time{})
	}
	return sid
}

// safeNext keeps post-login redirects on this site.
func safeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}
