package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"techypad/internal/currency"
	"techypad/internal/domain"
	applog "techypad/internal/log"
	"techypad/internal/payment"
	"techypad/internal/services"
	"techypad/internal/validate"
)

type CheckoutHandler struct {
	Checkout     *services.CheckoutService
	Cookies      Cookies
	SupportEmail string
}

// GET /checkout
func (h *CheckoutHandler) Form(c *fiber.Ctx) error {
	sid := h.Cookies.ensureSID(c)
	u := currentUser(c)
	cart, err := h.Checkout.Precheck(c.UserContext(), sid, u)
	if redirect, ok := h.precheckRedirect(err); ok {
		return c.Redirect(redirect)
	}
	if err != nil {
		applog.Error(c, "checkout.load.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	first, last, _ := strings.Cut(u.DisplayName, " ")
	form := validate.Shipping{FirstName: first, LastName: last, Email: u.Email, Country: "India"}
	return h.renderForm(c, fiber.StatusOK, cart, form, nil, "")
}

// POST /checkout
func (h *CheckoutHandler) Submit(c *fiber.Ctx) error {
	sid := h.Cookies.ensureSID(c)
	u := currentUser(c)
	var form validate.Shipping
	if err := c.BodyParser(&form); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "form"})
		return renderStatus(c, fiber.StatusBadRequest, "notfound", fiber.Map{"Message": "Invalid checkout form"})
	}

	a, err := h.Checkout.Begin(c.UserContext(), sid, u, form)
	if err == nil {
		applog.Audit(c, "checkout.payment.open", map[string]any{"order_id": a.OrderID, "amount": a.Amount, "provider": a.Widget.Provider})
		return render(c, "payment", fiber.Map{
			"Attempt": a,
			"Widget":  a.Widget,
			"Amount":  currency.Format(a.Amount, currency.Base),
		})
	}

	if redirect, ok := h.precheckRedirect(err); ok {
		return c.Redirect(redirect)
	}
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		applog.Security(c, "validation.fail", map[string]any{"fields": keys(verr.Fields)})
		return h.reRender(c, sid, u, form, verr.Fields, "")
	case errors.Is(err, services.ErrPriceTampered):
		return c.Redirect("/?notice=tampered")
	case errors.Is(err, services.ErrPaymentUnavailable):
		return h.reRender(c, sid, u, form, nil, "Payment gateway unavailable. Please try again later.")
	}
	applog.Error(c, "checkout.begin.fail", err, nil)
	return h.reRender(c, sid, u, form, nil, "Something went wrong. Please try again.")
}

// POST /checkout/:attempt/payment
func (h *CheckoutHandler) Payment(c *fiber.Ctx) error {
	sid := h.Cookies.ensureSID(c)
	out := payment.Outcome{
		Kind:            payment.OutcomeKind(c.FormValue("outcome")),
		PaymentID:       strings.TrimSpace(c.FormValue("payment_id")),
		ProviderOrderID: strings.TrimSpace(c.FormValue("provider_order_id")),
		Signature:       strings.TrimSpace(c.FormValue("signature")),
		Failure: payment.FailureInfo{
			Code:        validate.Truncate(c.FormValue("error_code"), 64),
			Description: validate.Truncate(c.FormValue("error_description"), 200),
			Reason:      validate.Truncate(c.FormValue("error_reason"), 64),
		},
	}

	a, err := h.Checkout.Resolve(c.UserContext(), c.Params("attempt"), sid, out)
	switch {
	case err == nil:
		applog.Audit(c, "checkout.order.placed", map[string]any{"order_id": a.Order.OrderID, "payment_id": a.PaymentID})
		return render(c, "success", fiber.Map{
			"Order": a.Order,
			"Total": currency.Format(a.Order.TotalAmount, currency.Base),
		})
	case errors.Is(err, services.ErrOrderNotRecorded):
		return renderStatus(c, fiber.StatusInternalServerError, "support", fiber.Map{
			"PaymentID":    a.PaymentID,
			"OrderID":      a.OrderID,
			"SupportEmail": h.SupportEmail,
		})
	case errors.Is(err, services.ErrPaymentDismissed):
		applog.Info(c, "checkout.payment.dismissed", map[string]any{"order_id": a.OrderID})
		return c.Redirect("/checkout")
	case errors.Is(err, services.ErrPaymentFailed):
		applog.Info(c, "checkout.payment.failed", map[string]any{"order_id": a.OrderID, "code": failureCode(a)})
		return renderStatus(c, fiber.StatusPaymentRequired, "failed", fiber.Map{"Failure": a.Failure})
	}
	applog.Security(c, "checkout.attempt.unknown", map[string]any{"attempt": c.Params("attempt")})
	return c.Redirect("/checkout")
}

func (h *CheckoutHandler) precheckRedirect(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrNotSignedIn):
		return "/auth?next=%2Fcheckout", true
	case errors.Is(err, services.ErrEmptyCart):
		return "/cart", true
	case errors.Is(err, services.ErrAlreadyOrdered):
		return "/orders", true
	}
	return "", false
}

func (h *CheckoutHandler) reRender(c *fiber.Ctx, sid string, u *domain.User, form validate.Shipping, fields map[string]string, msg string) error {
	cart, err := h.Checkout.Precheck(c.UserContext(), sid, u)
	if redirect, ok := h.precheckRedirect(err); ok {
		return c.Redirect(redirect)
	}
	if err != nil {
		applog.Error(c, "checkout.load.fail", err, nil)
		return renderStatus(c, fiber.StatusInternalServerError, "notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	status := fiber.StatusBadRequest
	if msg != "" {
		status = fiber.StatusServiceUnavailable
	}
	return h.renderForm(c, status, cart, form, fields, msg)
}

func (h *CheckoutHandler) renderForm(c *fiber.Ctx, status int, cart *services.Cart, form validate.Shipping, fields map[string]string, msg string) error {
	line := cart.Line()
	return renderStatus(c, status, "checkout", fiber.Map{
		"Form":   form,
		"Errors": fields,
		"Err":    msg,
		"Item":   line,
		"Total":  currency.Format(cart.TotalPrice(), currency.Base),
	})
}

func failureCode(a *services.Attempt) string {
	if a == nil || a.Failure == nil {
		return ""
	}
	return a.Failure.Code
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
