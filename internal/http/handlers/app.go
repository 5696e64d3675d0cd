package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	applog "techypad/internal/log"
)

const bodyLimit = 1 << 20 // 1 MiB

// ErrorHandler logs and shows a friendly message without internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	switch code {
	case fiber.StatusNotFound:
		msg = "Page not found"
	case fiber.StatusRequestEntityTooLarge:
		msg = "Request too large"
	default:
		applog.Error(c, "server.error", err, nil)
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// NewApp builds the storefront with its middleware stack and routes.
func NewApp(d *Deps) *fiber.App {
	engine := html.New(d.Config.TemplatesDir, ".html")
	engine.AddFunc("lower", strings.ToLower)

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler,
		// attempts and the session mirror keep request values past the handler
		Immutable: true,
	})

	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: `{"time":"${time}","request_id":"${locals:requestid}","status":${status},"method":"${method}","path":"${path}","latency":"${latency}"}` + "\n",
		Output: applog.Writer(),
	}))
	app.Use(helmet.New())
	app.Use(AttachUser(d.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasSuffix(p, "/live")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		ContextKey:     "csrf",
		CookieSameSite: "Lax",
		CookieSecure:   d.Config.CookieSecure,
		Expiration:     2 * time.Hour,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"path": c.Path()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	if d.Config.StaticDir != "" {
		app.Static("/static", d.Config.StaticDir)
	}
	Routes(app, d)
	return app
}

// Routes mounts every storefront and admin route on app.
func Routes(app *fiber.App, d *Deps) {
	authLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + c.Path()
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many attempts. Please try again later."})
		},
	})

	// Storefront
	app.Get("/", d.HomeHandler.Home)
	app.Get("/pages/:slug", d.HomeHandler.Page)
	app.Post("/currency", d.HomeHandler.SetCurrency)

	app.Get("/cart", d.CartHandler.View)
	app.Post("/cart", d.CartHandler.Add)
	app.Post("/cart/remove", d.CartHandler.Remove)

	app.Get("/checkout", d.CheckoutHandler.Form)
	app.Post("/checkout", d.CheckoutHandler.Submit)
	app.Post("/checkout/:attempt/payment", d.CheckoutHandler.Payment)

	// Identity
	app.Get("/auth", d.AuthHandler.Page)
	app.Post("/auth/signin", authLimiter, d.AuthHandler.SignIn)
	app.Post("/auth/signup", authLimiter, d.AuthHandler.SignUp)
	app.Get("/auth/confirm", d.AuthHandler.Confirm)
	app.Post("/auth/signout", d.AuthHandler.SignOut)

	// Customer orders
	orders := app.Group("/orders", RequireUser())
	orders.Get("/", d.OrderHandler.Mine)
	orders.Get("/live", d.OrderHandler.Live)
	orders.Post("/:id/cancel", d.OrderHandler.Cancel)

	// Admin console
	app.Get("/admin/login", d.AdminHandler.LoginForm)
	app.Post("/admin/login", authLimiter, d.AdminHandler.Login)
	admin := app.Group("/admin", RequireAdmin(d.Sessions))
	admin.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/admin/orders") })
	admin.Post("/logout", d.AdminHandler.Logout)
	admin.Get("/orders", d.AdminHandler.OrdersPage)
	admin.Get("/orders/live", d.AdminHandler.Live)
	admin.Post("/orders/:id/status", d.AdminHandler.SetStatus)
	admin.Post("/orders/:id/tracking", d.AdminHandler.SetTracking)
	admin.Post("/orders/:id/cancel", d.AdminHandler.Cancel)
	admin.Get("/orders/:id/receipt", d.AdminHandler.Receipt)
	admin.Post("/ordered-users/delete", d.AdminHandler.ForgetOrdered)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
}
