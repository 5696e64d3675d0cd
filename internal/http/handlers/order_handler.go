package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"techypad/internal/currency"
	"techypad/internal/domain"
	applog "techypad/internal/log"
	"techypad/internal/realtime"
	"techypad/internal/repos"
	"techypad/internal/services"
	"techypad/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
	Table  services.OrderTable
	Feed   realtime.Feed
}

// OrderRow is an order with its display values.
type OrderRow struct {
	domain.Order
	Total       string
	CanCancel   bool
	SafeLink    bool
	StatusLabel string
}

func orderRows(orders []domain.Order, customer bool) []OrderRow {
	out := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		r := OrderRow{
			Order:       o,
			Total:       currency.Format(o.TotalAmount, currency.Base),
			SafeLink:    safeLink(o.Tracking()),
			StatusLabel: statusLabel(o.OrderStatus),
		}
		if customer {
			r.CanCancel = o.OrderStatus.CustomerCancellable()
		} else {
			r.CanCancel = o.OrderStatus != domain.StatusCancelled
		}
		out = append(out, r)
	}
	return out
}

// GET /orders
func (h *OrderHandler) Mine(c *fiber.Ctx) error {
	u := currentUser(c)
	store := services.NewOrderStore(h.Table, nil)
	orders := store.FetchByEmail(c.UserContext(), u.Email)
	return render(c, "orders", fiber.Map{
		"Orders": orderRows(orders, true),
		"Err":    orderError(c.Query("err")),
	})
}

// GET /orders/live
func (h *OrderHandler) Live(c *fiber.Ctx) error {
	u := currentUser(c)
	store := services.NewOrderStore(h.Table, h.Feed)
	return streamOrders(c, store, u.Email, store.Mine)
}

// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	u := currentUser(c)
	id := c.Params("id")
	o, err := h.Orders.CancelOwn(c.UserContext(), u, id)
	switch {
	case err == nil:
		applog.Audit(c, "orders.cancel", map[string]any{"order_id": o.OrderID, "email": u.Email})
		return c.Redirect("/orders")
	case errors.Is(err, services.ErrNotOwner), errors.Is(err, repos.ErrOrderNotFound):
		applog.Security(c, "access.denied.order", map[string]any{"id": id})
		return notFound(c, "Order not found")
	case errors.Is(err, services.ErrNotCancellable):
		return c.Redirect("/orders?err=locked")
	}
	applog.Error(c, "orders.cancel.fail", err, map[string]any{"id": id})
	return c.Redirect("/orders?err=failed")
}

func orderError(code string) string {
	switch code {
	case "locked":
		return "This order can no longer be cancelled."
	case "failed":
		return "Could not update the order. Please try again."
	case "link":
		return "Tracking link must be printable text up to 500 characters."
	case "status":
		return "Unknown order status."
	}
	return ""
}

// safeLink reports whether a tracking link may be rendered as an href.
func safeLink(link string) bool { return link != "" && validate.WebLink(link) }

func statusLabel(s domain.OrderStatus) string {
	switch s {
	case domain.StatusPending:
		return "Pending"
	case domain.StatusConfirmed:
		return "Confirmed"
	case domain.StatusShipped:
		return "Shipped"
	case domain.StatusDelivered:
		return "Delivered"
	case domain.StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}
