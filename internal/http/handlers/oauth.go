package handlers

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"

	"techshop/internal/config"
	"techshop/internal/services"
)

const stateCookie = "oauth_state"

var errState = errors.New("oauth state mismatch")

// OAuth drives the provider redirect flow. The goth session travels in a
// sealed cookie between begin and callback.
type OAuth struct {
	Provider goth.Provider
	Cookies  *securecookie.SecureCookie
	Secure   bool
}

type oauthState struct {
	State   string
	Session string
}

// NewOAuth returns a disabled OAuth when Google credentials are absent.
func NewOAuth(cfg config.Config) *OAuth {
	o := &OAuth{
		Cookies: securecookie.New(cfg.HashKey, cfg.BlockKey).MaxAge(600),
		Secure:  cfg.Production(),
	}
	if cfg.OAuthEnabled() {
		o.Provider = google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, "email", "profile")
	}
	return o
}

func (o *OAuth) Enabled() bool { return o != nil && o.Provider != nil }

// Begin starts an auth session and returns the provider URL.
func (o *OAuth) Begin(c *fiber.Ctx) (string, error) {
	state := uuid.NewString()
	sess, err := o.Provider.BeginAuth(state)
	if err != nil {
		return "", err
	}
	authURL, err := sess.GetAuthURL()
	if err != nil {
		return "", err
	}
	sealed, err := o.Cookies.Encode(stateCookie, oauthState{State: state, Session: sess.Marshal()})
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    sealed,
		Path:     "/",
		HTTPOnly: true,
		Secure:   o.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})
	return authURL, nil
}

// Complete verifies the callback state and fetches the provider identity.
func (o *OAuth) Complete(c *fiber.Ctx) (services.OAuthIdentity, error) {
	var st oauthState
	if err := o.Cookies.Decode(stateCookie, c.Cookies(stateCookie), &st); err != nil {
		return services.OAuthIdentity{}, err
	}
	c.ClearCookie(stateCookie)
	if st.State == "" || c.Query("state") != st.State {
		return services.OAuthIdentity{}, errState
	}
	sess, err := o.Provider.UnmarshalSession(st.Session)
	if err != nil {
		return services.OAuthIdentity{}, err
	}
	params := url.Values{}
	c.Request().URI().QueryArgs().VisitAll(func(k, v []byte) {
		params.Add(string(k), string(v))
	})
	if _, err := sess.Authorize(o.Provider, params); err != nil {
		return services.OAuthIdentity{}, err
	}
	gu, err := o.Provider.FetchUser(sess)
	if err != nil {
		return services.OAuthIdentity{}, err
	}
	return services.OAuthIdentity{
		Provider:       o.Provider.Name(),
		ProviderUserID: gu.UserID,
		Email:          gu.Email,
		Name:           gu.Name,
		Image:          gu.AvatarURL,
	}, nil
}
