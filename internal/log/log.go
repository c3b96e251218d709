package log

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"techshop/internal/domain"
)

// PrincipalKey is the fiber Locals key holding the authenticated *domain.Principal.
const PrincipalKey = "principal"

type level string

const (
	levelInfo  level = "info"
	levelAudit level = "audit"
	levelWarn  level = "warn"
	levelError level = "error"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     level          `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Role      string         `json:"role,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// secret field names never reach the log.
var secret = []string{"password", "token", "secret", "hash", "cookie"}

func redact(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		lk := strings.ToLower(k)
		for _, s := range secret {
			if strings.Contains(lk, s) {
				v = "[redacted]"
				break
			}
		}
		out[k] = v
	}
	return out
}

func write(lvl level, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{
		TS:     time.Now().UTC().Format(time.RFC3339),
		Level:  lvl,
		Action: action,
		Fields: redact(fields),
	}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
		if p, ok := c.Locals(PrincipalKey).(*domain.Principal); ok && p != nil {
			e.UserID = p.UserID
			e.Role = p.Role.String()
		}
		if start, ok := c.Locals("started").(time.Time); ok {
			e.LatencyMs = time.Since(start).Milliseconds()
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(levelInfo, c, action, nil, fields)
}

// Audit records a state change made by an authenticated caller.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(levelAudit, c, action, nil, fields)
}

// Security records rejected or suspicious requests.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(levelWarn, c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(levelError, c, action, err, fields)
}

// Background logs outside a request, e.g. CLI commands and startup.
func Background(action string, err error, fields map[string]any) {
	lvl := levelInfo
	if err != nil {
		lvl = levelError
	}
	write(lvl, nil, action, err, fields)
}
