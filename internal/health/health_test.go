// ABOUTME: Tests for the health endpoints
// ABOUTME: Uses httptest to check status codes and JSON bodies
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serve(t *testing.T, h *Handler, path string) (int, result) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body
}

func TestHealthzAlwaysOK(t *testing.T) {
	h := New(Check{Name: "broken", Fn: func(context.Context) error { return errors.New("down") }})

	code, body := serve(t, h, "/healthz")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("got %d %q, want 200 ok", code, body.Status)
	}
}

func TestReadyz(t *testing.T) {
	ok := Check{Name: "socket", Fn: func(context.Context) error { return nil }}
	bad := Check{Name: "stream", Fn: func(context.Context) error { return errors.New("silent") }}

	tests := []struct {
		name       string
		checks     []Check
		wantCode   int
		wantStatus string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"all pass", []Check{ok}, http.StatusOK, "ok"},
		{"one fails", []Check{ok, bad}, http.StatusServiceUnavailable, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := serve(t, New(tt.checks...), "/readyz")
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			for _, c := range tt.checks {
				if _, found := body.Checks[c.Name]; !found {
					t.Errorf("missing result for %q", c.Name)
				}
			}
		})
	}
}

func TestReadyzReportsFailureMessage(t *testing.T) {
	h := New(Check{Name: "stream", Fn: func(context.Context) error { return errors.New("silent") }})

	_, body := serve(t, h, "/readyz")
	if body.Checks["stream"] != "fail: silent" {
		t.Errorf("stream = %q, want %q", body.Checks["stream"], "fail: silent")
	}
}

func TestFresh(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	tests := []struct {
		name    string
		last    time.Time
		wantErr string
	}{
		{"never", time.Time{}, "no stream activity"},
		{"recent", now.Add(-100 * time.Millisecond), ""},
		{"stale", now.Add(-3 * time.Second), "last stream activity 3s ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := freshAt("stream", time.Second, func() time.Time { return tt.last }, clock)
			err := c.Fn(context.Background())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
