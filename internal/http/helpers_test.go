package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"techshop/internal/config"
	"techshop/internal/domain"
	"techshop/internal/http/handlers"
	"techshop/internal/repos"
)

type testEnvelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Available  *int            `json:"available"`
	Details    json.RawMessage `json:"details"`
	Pagination *domain.Page    `json:"pagination"`
}

func testConfig() config.Config {
	return config.Config{
		DBDSN:     ":memory:",
		Env:       "test",
		JWTSecret: "test-secret",
		HashKey:   []byte(strings.Repeat("h", 32)),
		BlockKey:  []byte(strings.Repeat("b", 32)),
	}
}

func testLimits() handlers.Limits {
	return handlers.Limits{Global: 1000, Login: 5, Check: 3, Window: time.Minute}
}

func newTestApp(t *testing.T) (*fiber.App, *handlers.Deps) {
	t.Helper()
	return newTestAppWith(t, testConfig(), testLimits())
}

func newTestAppWith(t *testing.T, cfg config.Config, lim handlers.Limits) (*fiber.App, *handlers.Deps) {
	t.Helper()
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	app, deps := handlers.NewApp(cfg, db, lim)
	return app, deps
}

func tokenFor(t *testing.T, deps *handlers.Deps, id, email string, role domain.Role) string {
	t.Helper()
	tok, _, err := deps.Auth.IssueToken(&domain.User{ID: id, Email: email, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func aliceToken(t *testing.T, deps *handlers.Deps) string {
	return tokenFor(t, deps, "u-alice", "alice@techshop.test", domain.RoleUser)
}

func bobToken(t *testing.T, deps *handlers.Deps) string {
	return tokenFor(t, deps, "u-bob", "bob@techshop.test", domain.RoleUser)
}

func adminToken(t *testing.T, deps *handlers.Deps) string {
	return tokenFor(t, deps, "u-admin", "admin@techshop.test", domain.RoleAdmin)
}

func newJSONRequest(method, path, token string, body any) *http.Request {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// call sends a JSON request and decodes the envelope.
func call(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, testEnvelope) {
	t.Helper()
	resp, err := app.Test(newJSONRequest(method, path, token, body), -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var env testEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
	}
	return resp, env
}

func expectStatus(t *testing.T, resp *http.Response, env testEnvelope, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d (error=%q message=%q)", want, resp.StatusCode, env.Error, env.Message)
	}
}

func decodeData(t *testing.T, env testEnvelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Role   string         `json:"role"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs returns the JSON log entries written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil && e.Action != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
