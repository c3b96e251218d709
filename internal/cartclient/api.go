package cartclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"techshop/internal/domain"
)

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status    int
	Message   string
	Available *int
}

func (e *APIError) Error() string {
	if e.Available != nil {
		return fmt.Sprintf("server returned %d: %s (available %d)", e.Status, e.Message, *e.Available)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Available *int            `json:"available"`
}

// API talks to the shop's JSON endpoints.
type API struct {
	BaseURL string
	Timeout time.Duration
}

func NewAPI(baseURL string) *API {
	return &API{BaseURL: strings.TrimRight(baseURL, "/"), Timeout: 10 * time.Second}
}

type session struct {
	Token string `json:"token"`
}

// Login signs in with credentials and returns the bearer token.
func (a *API) Login(ctx context.Context, email, password string) (string, error) {
	var s session
	err := a.do(ctx, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"email": email, "password": password}, &s)
	return s.Token, err
}

func (a *API) Product(ctx context.Context, key string) (domain.ProductView, error) {
	var p domain.ProductView
	err := a.do(ctx, fiber.MethodGet, "/api/products/"+url.PathEscape(key), "", nil, &p)
	return p, err
}

func (a *API) Cart(ctx context.Context, token string) (domain.Cart, error) {
	var c domain.Cart
	err := a.do(ctx, fiber.MethodGet, "/api/cart", token, nil, &c)
	return c, err
}

func (a *API) Add(ctx context.Context, token string, line domain.MergeLine) (domain.CartLine, error) {
	var l domain.CartLine
	err := a.do(ctx, fiber.MethodPost, "/api/cart", token, line, &l)
	return l, err
}

func (a *API) Update(ctx context.Context, token, itemID string, quantity int) (domain.CartLine, error) {
	var l domain.CartLine
	err := a.do(ctx, fiber.MethodPut, "/api/cart", token, fiber.Map{"itemId": itemID, "quantity": quantity}, &l)
	return l, err
}

func (a *API) Remove(ctx context.Context, token, itemID string) error {
	return a.do(ctx, fiber.MethodDelete, "/api/cart?itemId="+url.QueryEscape(itemID), token, nil, nil)
}

func (a *API) Merge(ctx context.Context, token, mergeID string, lines []domain.MergeLine) (domain.MergeResult, error) {
	var res domain.MergeResult
	err := a.do(ctx, fiber.MethodPost, "/api/cart/merge", token, fiber.Map{"mergeId": mergeID, "items": lines}, &res)
	return res, err
}

func (a *API) do(ctx context.Context, method, path, token string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(a.BaseURL + path)
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		agent.JSON(body)
	}
	timeout := a.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout || timeout == 0 {
			timeout = left
		}
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	// Bytes releases the agent.
	code, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errs[0])
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: code, Message: strings.TrimSpace(string(raw))}
	}
	if code >= 400 || !env.Success {
		msg := env.Error
		if env.Message != "" {
			msg += ": " + env.Message
		}
		return &APIError{Status: code, Message: msg, Available: env.Available}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
