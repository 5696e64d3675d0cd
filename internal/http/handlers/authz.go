package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	applog "techypad/internal/log"
	"techypad/internal/repos"
	"techypad/internal/services"
)

// AttachUser resolves the access token cookie into Locals("user").
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := c.Cookies(cookieAuth); tok != "" {
			u, err := auth.CurrentUser(c.UserContext(), tok)
			if err != nil {
				applog.Security(c, "auth.token.reject", map[string]any{"err": err.Error()})
			} else if u != nil {
				c.Locals("user", u)
				c.Locals("user_id", u.ID)
			}
		}
		return c.Next()
	}
}

// RequireUser enforces that a user is signed in; otherwise redirect to /auth.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			return c.Redirect("/auth?next=" + url.QueryEscape(c.OriginalURL()))
		}
		return c.Next()
	}
}

// RequireAdmin lets through requests carrying a live admin session.
func RequireAdmin(sessions *repos.AdminSessionRepo) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(cookieAdminSID)
		subject, err := sessions.Subject(c.UserContext(), id)
		if err != nil {
			applog.Error(c, "admin.session.read.fail", err, nil)
		}
		if subject == "" {
			applog.Security(c, "access.denied.admin", map[string]any{"path": c.Path(), "has_cookie": id != ""})
			return c.Redirect("/admin/login")
		}
		c.Locals("admin", subject)
		return c.Next()
	}
}
