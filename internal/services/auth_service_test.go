package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"techshop/internal/domain"
	"techshop/internal/services"
)

const secret = "unit-test-secret"

func TestAuthService_Login(t *testing.T) {
	svc := services.NewAuthService(seeded(t), secret)
	ctx := context.Background()

	u, created, err := svc.Login(ctx, "sid-1", "ALICE@techshop.test ", "Passw0rd!")
	if err != nil || created || u.ID != "u-alice" {
		t.Fatalf("login alice: %+v created=%v err=%v", u, created, err)
	}
	cur, err := svc.CurrentUser(ctx, "sid-1")
	if err != nil || cur.ID != "u-alice" {
		t.Fatalf("session not bound: %+v %v", cur, err)
	}
	if err := svc.Logout(ctx, "sid-1"); err != nil {
		t.Fatal(err)
	}
	if cur, err := svc.CurrentUser(ctx, "sid-1"); err == nil && cur != nil {
		t.Fatalf("session still bound after logout: %+v", cur)
	}

	if _, _, err := svc.Login(ctx, "sid-2", "alice@techshop.test", "nope"); !errors.Is(err, services.ErrBadCreds) {
		t.Fatalf("want ErrBadCreds, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "sid-3", "carol@techshop.test", "Passw0rd!"); !errors.Is(err, services.ErrOAuthOnly) {
		t.Fatalf("want ErrOAuthOnly, got %v", err)
	}
}

func TestAuthService_LoginRegisters(t *testing.T) {
	svc := services.NewAuthService(seeded(t), secret)
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "sid-1", "frank@techshop.test", "short"); !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("weak password: want ErrInvalid, got %v", err)
	}
	u, created, err := svc.Login(ctx, "sid-1", "frank@techshop.test", "G00d!pass")
	if err != nil || !created {
		t.Fatalf("register: created=%v err=%v", created, err)
	}
	if u.Role != domain.RoleUser || u.Name != "frank" || !u.HasPassword() {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestAuthService_OAuthLogin(t *testing.T) {
	svc := services.NewAuthService(seeded(t), secret)
	ctx := context.Background()

	carol, err := svc.OAuthLogin(ctx, "sid-c", services.OAuthIdentity{Provider: "google", ProviderUserID: "google-carol"})
	if err != nil || carol.ID != "u-carol" {
		t.Fatalf("linked account: %+v %v", carol, err)
	}

	// An existing email gets the provider linked.
	alice, err := svc.OAuthLogin(ctx, "sid-a", services.OAuthIdentity{
		Provider: "google", ProviderUserID: "g-alice", Email: "alice@techshop.test", Name: "Alice G",
	})
	if err != nil || alice.ID != "u-alice" {
		t.Fatalf("link by email: %+v %v", alice, err)
	}
	again, err := svc.OAuthLogin(ctx, "sid-a2", services.OAuthIdentity{Provider: "google", ProviderUserID: "g-alice"})
	if err != nil || again.ID != "u-alice" {
		t.Fatalf("second oauth login: %+v %v", again, err)
	}

	fresh, err := svc.OAuthLogin(ctx, "sid-g", services.OAuthIdentity{
		Provider: "google", ProviderUserID: "g-gina", Email: "gina@techshop.test", Name: "Gina",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fresh.HasPassword() || fresh.Role != domain.RoleUser {
		t.Fatalf("oauth user must have no password: %+v", fresh)
	}
	// And so cannot use credentials.
	if _, _, err := svc.Login(ctx, "sid-x", "gina@techshop.test", "G00d!pass"); !errors.Is(err, services.ErrOAuthOnly) {
		t.Fatalf("want ErrOAuthOnly, got %v", err)
	}

	if _, err := svc.OAuthLogin(ctx, "sid-n", services.OAuthIdentity{Provider: "google", ProviderUserID: "g-none"}); !errors.Is(err, services.ErrInvalid) {
		t.Fatalf("missing email: want ErrInvalid, got %v", err)
	}
}

func TestAuthService_Tokens(t *testing.T) {
	svc := services.NewAuthService(seeded(t), secret)

	tok, exp, err := svc.IssueToken(&domain.User{ID: "u-admin", Email: "admin@techshop.test", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) < 71*time.Hour {
		t.Fatalf("unexpected expiry %v", exp)
	}
	p, err := svc.ParseToken(tok)
	if err != nil || p.UserID != "u-admin" || p.Role != domain.RoleAdmin {
		t.Fatalf("parse: %+v %v", p, err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, services.Claims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	raw, _ := expired.SignedString([]byte(secret))
	if _, err := svc.ParseToken(raw); !errors.Is(err, services.ErrBadToken) {
		t.Fatalf("expired: want ErrBadToken, got %v", err)
	}

	other := jwt.NewWithClaims(jwt.SigningMethodHS384, services.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-admin"},
	})
	raw, _ = other.SignedString([]byte(secret))
	if _, err := svc.ParseToken(raw); !errors.Is(err, services.ErrBadToken) {
		t.Fatalf("wrong alg: want ErrBadToken, got %v", err)
	}
}

func TestAuthService_TokenPrincipalReadsCurrentRole(t *testing.T) {
	db := seeded(t)
	svc := services.NewAuthService(db, secret)
	ctx := context.Background()

	tok, _, err := svc.IssueToken(&domain.User{ID: "u-admin", Email: "admin@techshop.test", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE users SET role = 'USER' WHERE id = 'u-admin'`); err != nil {
		t.Fatal(err)
	}
	p, err := svc.TokenPrincipal(ctx, tok)
	if err != nil || p.Role != domain.RoleUser {
		t.Fatalf("want demoted role, got %+v %v", p, err)
	}

	ghost, _, err := svc.IssueToken(&domain.User{ID: "u-ghost", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.TokenPrincipal(ctx, ghost); !errors.Is(err, services.ErrBadToken) {
		t.Fatalf("unknown user: want ErrBadToken, got %v", err)
	}
}
