package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"techshop/internal/domain"
	"techshop/internal/repos"
	"techshop/internal/validate"
)

const tokenTTL = 72 * time.Hour

var ErrBadToken = errors.New("invalid or expired token")

type AuthService struct {
	db     *sqlx.DB
	Users  *repos.UserRepo
	secret []byte
}

func NewAuthService(db *sqlx.DB, jwtSecret string) *AuthService {
	return &AuthService{db: db, Users: repos.NewUserRepo(db), secret: []byte(jwtSecret)}
}

// Login checks credentials and binds sid to the user. An unknown email is
// registered as a new USER; created reports that case.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (u *domain.User, created bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err = s.Users.ByEmail(ctx, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !validate.Password(password) {
			return nil, false, invalid("password must be 8-20 characters with upper, lower, digit and symbol")
		}
		hash, herr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if herr != nil {
			return nil, false, herr
		}
		u, err = s.Users.Create(ctx, email, nameFromEmail(email), "", string(hash), domain.RoleUser)
		if err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	case !u.HasPassword():
		return nil, false, ErrOAuthOnly
	default:
		if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
			return nil, false, ErrBadCreds
		}
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, false, err
	}
	return u, created, nil
}

// OAuthIdentity is what a provider reports about a signed-in user.
type OAuthIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	Image          string
}

// OAuthLogin links the provider identity to a user (creating one without a
// password when needed) and binds sid.
func (s *AuthService) OAuthLogin(ctx context.Context, sid string, id OAuthIdentity) (*domain.User, error) {
	if id.Provider == "" || id.ProviderUserID == "" {
		return nil, invalid("provider identity is incomplete")
	}
	var user *domain.User
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := s.Users.WithTx(tx)
		u, err := users.ByAccount(ctx, id.Provider, id.ProviderUserID)
		if err == nil {
			user = u
			return users.BindSession(ctx, sid, u.ID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		email := strings.ToLower(strings.TrimSpace(id.Email))
		if _, ok := validate.Email(email); !ok {
			return invalid("provider did not return a usable email")
		}
		u, err = users.ByEmail(ctx, email)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			name := id.Name
			if name == "" {
				name = nameFromEmail(email)
			}
			u, err = users.Create(ctx, email, name, id.Image, "", domain.RoleUser)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := users.UpdateProfile(ctx, u.ID, id.Name, id.Image); err != nil {
				return err
			}
		}
		if err := users.LinkAccount(ctx, id.Provider, id.ProviderUserID, u.ID); err != nil {
			return err
		}
		user = u
		return users.BindSession(ctx, sid, u.ID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for API clients.
func (s *AuthService) IssueToken(u *domain.User) (string, time.Time, error) {
	exp := time.Now().Add(tokenTTL)
	claims := Claims{
		Email: u.Email,
		Role:  u.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tok, exp, err
}

// ParseToken validates a bearer token and returns its principal.
func (s *AuthService) ParseToken(raw string) (*domain.Principal, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid || claims.Subject == "" {
		return nil, ErrBadToken
	}
	return &domain.Principal{UserID: claims.Subject, Email: claims.Email, Role: domain.ParseRole(claims.Role)}, nil
}

// TokenPrincipal validates a bearer token and resolves the caller against the
// users table, so a role change or deletion applies before the token expires.
func (s *AuthService) TokenPrincipal(ctx context.Context, raw string) (*domain.Principal, error) {
	p, err := s.ParseToken(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.ByID(ctx, p.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadToken
	}
	if err != nil {
		return nil, err
	}
	return &domain.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

func nameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
