package handlers

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"techypad/internal/currency"
	"techypad/internal/domain"
	applog "techypad/internal/log"
	"techypad/internal/realtime"
	"techypad/internal/repos"
	"techypad/internal/services"
	"techypad/internal/validate"
)

type AdminHandler struct {
	Orders   *services.OrderService
	Table    services.OrderTable
	Feed     realtime.Feed
	Auth     *services.AuthService
	Sessions *repos.AdminSessionRepo
	Cookies  Cookies

	AdminEmail        string
	AdminPasswordHash string
	TTL               time.Duration
}

func (h *AdminHandler) ttl() time.Duration {
	if h.TTL <= 0 {
		return 12 * time.Hour
	}
	return h.TTL
}

func (h *AdminHandler) openSession(c *fiber.Ctx, subject string) error {
	id, err := h.Sessions.Create(c.UserContext(), subject, h.ttl())
	if err != nil {
		applog.Error(c, "admin.session.create.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not open the admin console"})
	}
	h.Cookies.set(c, cookieAdminSID, id, time.Now().Add(h.ttl()))
	applog.Audit(c, "admin.login.success", map[string]any{"subject": subject})
	return c.Redirect("/admin/orders")
}

// credentialsMatch checks the configured operator pair. Both comparisons
// always run.
func (h *AdminHandler) credentialsMatch(email, password string) bool {
	if h.AdminEmail == "" || h.AdminPasswordHash == "" {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(h.AdminEmail))) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(h.AdminPasswordHash), []byte(password)) == nil
	return emailOK && passOK
}

// GET /admin/login
func (h *AdminHandler) LoginForm(c *fiber.Ctx) error {
	if subject, _ := h.Sessions.Subject(c.UserContext(), c.Cookies(cookieAdminSID)); subject != "" {
		return c.Redirect("/admin/orders")
	}
	if u := currentUser(c); u.HasRole(domain.RoleAdmin) {
		return h.openSession(c, u.Email)
	}
	return render(c, "admin_login", fiber.Map{})
}

// POST /admin/login
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")

	if h.credentialsMatch(email, password) {
		return h.openSession(c, strings.ToLower(email))
	}
	if _, ok := validate.Email(email); ok && password != "" {
		if s, err := h.Auth.SignIn(c.UserContext(), email, password); err == nil && s.User.HasRole(domain.RoleAdmin) {
			return h.openSession(c, s.User.Email)
		}
	}
	applog.Security(c, "admin.login.fail", map[string]any{"email": email})
	return renderStatus(c, fiber.StatusUnauthorized, "admin_login", fiber.Map{"Err": "Invalid admin credentials", "Email": email})
}

// POST /admin/logout
func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	if id := c.Cookies(cookieAdminSID); id != "" {
		if err := h.Sessions.Delete(c.UserContext(), id); err != nil {
			applog.Error(c, "admin.session.delete.fail", err, nil)
		}
	}
	h.Cookies.clear(c, cookieAdminSID)
	applog.Audit(c, "admin.logout", map[string]any{"subject": c.Locals("admin")})
	return c.Redirect("/admin/login")
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	store := services.NewOrderStore(h.Table, nil)
	orders := store.FetchAll(c.UserContext())
	ordered, err := h.Auth.Ordered.List(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.ordered_users.list.fail", err, nil)
	}
	var revenue int64
	for _, o := range orders {
		if o.OrderStatus != domain.StatusCancelled {
			revenue += o.TotalAmount
		}
	}
	return render(c, "admin_orders", fiber.Map{
		"Orders":   orderRows(orders, false),
		"Statuses": domain.OrderStatuses,
		"Ordered":  ordered,
		"Revenue":  currency.Format(revenue, currency.Base),
		"Admin":    c.Locals("admin"),
		"Err":      orderError(c.Query("err")),
		"Notice":   c.Query("notice"),
	})
}

// GET /admin/orders/live
func (h *AdminHandler) Live(c *fiber.Ctx) error {
	store := services.NewOrderStore(h.Table, h.Feed)
	return streamOrders(c, store, "", store.All)
}

// POST /admin/orders/:id/status
func (h *AdminHandler) SetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	o, err := h.Orders.SetStatus(c.UserContext(), id, c.FormValue("status"))
	if err != nil {
		return h.mutationFailed(c, "admin.orders.status.fail", id, err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": o.OrderID, "status": o.OrderStatus})
	return c.Redirect("/admin/orders")
}

// POST /admin/orders/:id/tracking
func (h *AdminHandler) SetTracking(c *fiber.Ctx) error {
	id := c.Params("id")
	o, err := h.Orders.SetTracking(c.UserContext(), id, c.FormValue("tracking_link"))
	if err != nil {
		return h.mutationFailed(c, "admin.orders.tracking.fail", id, err)
	}
	applog.Audit(c, "admin.orders.tracking", map[string]any{"order_id": o.OrderID, "tracking_link": o.Tracking()})
	return c.Redirect("/admin/orders")
}

// POST /admin/orders/:id/cancel
func (h *AdminHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	o, err := h.Orders.Cancel(c.UserContext(), id)
	if err != nil {
		return h.mutationFailed(c, "admin.orders.cancel.fail", id, err)
	}
	applog.Audit(c, "admin.orders.cancel", map[string]any{"order_id": o.OrderID})
	return c.Redirect("/admin/orders")
}

// GET /admin/orders/:id/receipt
func (h *AdminHandler) Receipt(c *fiber.Ctx) error {
	o, err := h.Orders.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, repos.ErrOrderNotFound) {
		return notFound(c, "Order not found")
	}
	if err != nil {
		applog.Error(c, "admin.orders.receipt.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not load the order"})
	}
	return render(c, "receipt", fiber.Map{
		"Order":  o,
		"Price":  currency.Format(o.ProductPrice, currency.Base),
		"Total":  currency.Format(o.TotalAmount, currency.Base),
		"Status": statusLabel(o.OrderStatus),
	})
}

// POST /admin/ordered-users/delete
func (h *AdminHandler) ForgetOrdered(c *fiber.Ctx) error {
	email, ok := validate.Email(c.FormValue("email"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "email"})
		return c.Redirect("/admin/orders")
	}
	removed, err := h.Auth.ForgetOrdered(c.UserContext(), email)
	if err != nil {
		applog.Error(c, "admin.ordered_users.delete.fail", err, nil)
		return c.Redirect("/admin/orders?err=failed")
	}
	applog.Audit(c, "admin.ordered_users.delete", map[string]any{"email": email, "removed": removed})
	return c.Redirect("/admin/orders")
}

func (h *AdminHandler) mutationFailed(c *fiber.Ctx, action, id string, err error) error {
	switch {
	case errors.Is(err, repos.ErrOrderNotFound):
		return notFound(c, "Order not found")
	case errors.Is(err, services.ErrInvalidStatus):
		applog.Security(c, "validation.fail", map[string]any{"field": "status"})
		return c.Redirect("/admin/orders?err=status")
	case errors.Is(err, services.ErrInvalidLink):
		applog.Security(c, "validation.fail", map[string]any{"field": "tracking_link"})
		return c.Redirect("/admin/orders?err=link")
	case errors.Is(err, services.ErrNotCancellable):
		return c.Redirect("/admin/orders?err=locked")
	}
	applog.Error(c, action, err, map[string]any{"id": id})
	return c.Redirect("/admin/orders?err=failed")
}
