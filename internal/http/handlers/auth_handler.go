package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"techypad/internal/identity"
	"techypad/internal/log"
	"techypad/internal/services"
	"techypad/internal/validate"
)

type AuthHandler struct {
	Auth    *services.AuthService
	Cookies Cookies
}

func (h *AuthHandler) form(c *fiber.Ctx, status int, data fiber.Map) error {
	data["Next"] = safeNext(c.FormValue("next", c.Query("next")), "/")
	if _, ok := data["Mode"]; !ok {
		data["Mode"] = "signin"
	}
	return renderStatus(c, status, "auth", data)
}

// GET /auth
func (h *AuthHandler) Page(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Redirect(safeNext(c.Query("next"), "/"))
	}
	mode := "signin"
	if c.Query("mode") == "signup" {
		mode = "signup"
	}
	return h.form(c, fiber.StatusOK, fiber.Map{"Mode": mode})
}

func (h *AuthHandler) setSession(c *fiber.Ctx, s *identity.Session) {
	h.Cookies.set(c, cookieAuth, s.AccessToken, s.ExpiresAt)
}

// POST /auth/signin
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	in := validate.SignIn{Email: strings.TrimSpace(c.FormValue("email")), Password: c.FormValue("password")}
	if errs := validate.Struct(in); errs != nil {
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": "bad_format"})
		return h.form(c, fiber.StatusUnauthorized, fiber.Map{"Err": "Invalid email or password", "Email": in.Email})
	}

	s, err := h.Auth.SignIn(c.UserContext(), in.Email, in.Password)
	if err != nil {
		msg := "Invalid email or password"
		reason := "credentials"
		switch {
		case errors.Is(err, services.ErrEmailNotConfirmed):
			msg, reason = "Please confirm your email before signing in.", "unconfirmed"
		case errors.Is(err, services.ErrInvalidCredentials):
		default:
			log.Error(c, "auth.login.error", err, nil)
			msg, reason = "Sign in is unavailable right now. Please try again.", "provider"
		}
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": reason})
		return h.form(c, fiber.StatusUnauthorized, fiber.Map{"Err": msg, "Email": in.Email})
	}

	h.setSession(c, s)
	log.Audit(c, "auth.login.success", map[string]any{"email": s.User.Email})
	return c.Redirect(safeNext(c.FormValue("next"), "/"))
}

// POST /auth/signup
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	in := validate.SignUp{
		Name:     strings.TrimSpace(c.FormValue("name")),
		Email:    strings.TrimSpace(c.FormValue("email")),
		Password: c.FormValue("password"),
	}
	data := fiber.Map{"Mode": "signup", "Email": in.Email, "Name": in.Name}
	if errs := validate.Struct(in); errs != nil {
		log.Security(c, "validation.fail", map[string]any{"fields": keys(errs)})
		data["Errors"] = errs
		return h.form(c, fiber.StatusBadRequest, data)
	}

	res := h.Auth.SignUp(c.UserContext(), in.Email, in.Password, in.Name)
	if res.Err != nil {
		var perr *identity.Error
		if errors.As(res.Err, &perr) {
			data["Err"] = perr.Message
		} else {
			log.Error(c, "auth.signup.error", res.Err, nil)
			data["Err"] = "Sign up is unavailable right now. Please try again."
		}
		log.Security(c, "auth.signup.fail", map[string]any{"email": in.Email})
		return h.form(c, fiber.StatusBadRequest, data)
	}

	log.Audit(c, "auth.signup", map[string]any{"email": in.Email, "needs_verification": res.NeedsVerification})
	if res.NeedsVerification {
		return h.form(c, fiber.StatusOK, fiber.Map{"Mode": "signin", "Email": in.Email,
			"Notice": "Check your email for a confirmation link, then sign in."})
	}
	h.setSession(c, res.Session)
	return c.Redirect(safeNext(c.FormValue("next"), "/"))
}

// GET /auth/confirm?token=
func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	s, err := h.Auth.ConfirmEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		log.Security(c, "auth.confirm.fail", nil)
		return h.form(c, fiber.StatusBadRequest, fiber.Map{"Err": "This confirmation link is invalid or has already been used."})
	}
	h.setSession(c, s)
	log.Audit(c, "auth.confirm", map[string]any{"email": s.User.Email})
	return c.Redirect("/")
}

// POST /auth/signout
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	if tok := c.Cookies(cookieAuth); tok != "" {
		if err := h.Auth.SignOut(c.UserContext(), tok); err != nil {
			log.Error(c, "auth.logout.fail", err, nil)
		}
	}
	h.Cookies.clear(c, cookieAuth)
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/?notice=signedout")
}
