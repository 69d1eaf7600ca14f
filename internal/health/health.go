// ABOUTME: Liveness and readiness endpoints
// ABOUTME: Readiness is driven by named checks such as stream freshness
// Package health serves /healthz and /readyz.
//
// /healthz always answers 200 while the process can serve HTTP. /readyz
// answers 200 only when every registered Check passes, otherwise 503.
// Both respond with {"status": "ok"|"fail", "checks": {...}}.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const checkTimeout = 2 * time.Second

// Check is a named readiness probe; Fn returns nil when healthy
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. Checks are fixed at construction.
type Handler struct {
	checks []Check
}

// New creates a Handler evaluating checks in order on each /readyz request
func New(checks ...Check) *Handler {
	return &Handler{checks: append([]Check(nil), checks...)}
}

// Register adds the routes to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz always reports ok
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz reports 503 if any check fails
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := result{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Fn(ctx)
		cancel()

		if err != nil {
			res.Checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[c.Name] = "ok"
	}

	writeJSON(w, status, res)
}

// Fresh fails when last reports a zero time or one older than maxAge.
// It backs the "stream" check: a receiver is ready while datagrams keep
// arriving, a sender while sends keep succeeding.
func Fresh(name string, maxAge time.Duration, last func() time.Time) Check {
	return freshAt(name, maxAge, last, time.Now)
}

func freshAt(name string, maxAge time.Duration, last func() time.Time, now func() time.Time) Check {
	return Check{
		Name: name,
		Fn: func(context.Context) error {
			t := last()
			if t.IsZero() {
				return fmt.Errorf("no %s activity yet", name)
			}
			if age := now().Sub(t); age > maxAge {
				return fmt.Errorf("last %s activity %v ago (limit %v)", name, age.Round(time.Millisecond), maxAge)
			}
			return nil
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
