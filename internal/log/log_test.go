package log

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := stdlog.Writer(), stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	t.Cleanup(func() {
		stdlog.SetOutput(prevOut)
		stdlog.SetFlags(prevFlags)
	})
	return &buf
}

func TestBackgroundRedactsSecrets(t *testing.T) {
	buf := capture(t)
	Background("cli.login", errors.New("boom"), map[string]any{
		"email":       "alice@techshop.test",
		"password":    "Passw0rd!",
		"AccessToken": "abc",
		"product_id":  "p-aero14",
	})

	var e entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &e); err != nil {
		t.Fatalf("not a JSON line: %q", buf.String())
	}
	if e.Level != levelError || e.Action != "cli.login" || e.Err != "boom" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Fields["password"] != "[redacted]" || e.Fields["AccessToken"] != "[redacted]" {
		t.Fatalf("secrets leaked: %v", e.Fields)
	}
	if e.Fields["email"] != "alice@techshop.test" || e.Fields["product_id"] != "p-aero14" {
		t.Fatalf("plain fields altered: %v", e.Fields)
	}
}

func TestBackgroundWithoutFields(t *testing.T) {
	buf := capture(t)
	Background("server.start", nil, nil)
	if strings.Contains(buf.String(), `"fields"`) || !strings.Contains(buf.String(), `"level":"info"`) {
		t.Fatalf("unexpected line %q", buf.String())
	}
}
