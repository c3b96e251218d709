package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"techshop/internal/domain"
	applog "techshop/internal/log"
	"techshop/internal/services"
)

type AuthHandler struct {
	base
	Auth  *services.AuthService
	OAuth *OAuth
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (h *AuthHandler) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		h.setSID(c, sid, time.Time{})
	}
	return sid
}

func (h *AuthHandler) setSID(c *fiber.Ctx, sid string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.Production,
		Expires:  expires,
	})
}

// issue signs a token for u and writes the sign-in response.
func (h *AuthHandler) issue(c *fiber.Ctx, u *domain.User, status int, msg string) error {
	tok, exp, err := h.Auth.IssueToken(u)
	if err != nil {
		return h.failErr(c, "auth.token", err)
	}
	return h.ok(c, status, session{User: u, Token: tok, ExpiresAt: exp}, msg)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	sid := h.ensureSID(c)
	u, created, err := h.Auth.Login(c.UserContext(), sid, req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrBadCreds), errors.Is(err, services.ErrOAuthOnly):
		applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email, "reason": err.Error()})
		return h.fail(c, fiber.StatusUnauthorized, "invalid credentials", err.Error())
	case err != nil:
		return h.failErr(c, "auth.login", err)
	}
	if created {
		applog.Audit(c, "auth.register", map[string]any{"email": u.Email, "user_id": u.ID})
		return h.issue(c, u, fiber.StatusCreated, "account created")
	}
	applog.Audit(c, "auth.login.success", map[string]any{"email": u.Email})
	return h.issue(c, u, fiber.StatusOK, "signed in")
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies("sid"); sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			applog.Error(c, "auth.logout.fail", err, nil)
		}
	}
	h.setSID(c, "", time.Now().Add(-time.Hour))
	applog.Audit(c, "auth.logout", nil)
	return h.ok(c, fiber.StatusOK, nil, "signed out")
}

// GET /api/auth/session
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	return h.ok(c, fiber.StatusOK, principal(c), "")
}

// GET /api/auth/oauth/google
func (h *AuthHandler) OAuthBegin(c *fiber.Ctx) error {
	if !h.OAuth.Enabled() {
		return h.fail(c, fiber.StatusServiceUnavailable, "oauth not configured", "")
	}
	url, err := h.OAuth.Begin(c)
	if err != nil {
		return h.failErr(c, "auth.oauth.begin", err)
	}
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// GET /api/auth/oauth/google/callback
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	if !h.OAuth.Enabled() {
		return h.fail(c, fiber.StatusServiceUnavailable, "oauth not configured", "")
	}
	id, err := h.OAuth.Complete(c)
	if err != nil {
		applog.Security(c, "auth.oauth.fail", map[string]any{"reason": err.Error()})
		return h.fail(c, fiber.StatusUnauthorized, "oauth sign-in failed", "")
	}
	sid := h.ensureSID(c)
	u, err := h.Auth.OAuthLogin(c.UserContext(), sid, id)
	if err != nil {
		return h.failErr(c, "auth.oauth", err)
	}
	applog.Audit(c, "auth.oauth.success", map[string]any{"email": u.Email, "provider": id.Provider})
	return h.issue(c, u, fiber.StatusOK, "signed in")
}
