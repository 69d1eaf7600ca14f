// ABOUTME: Functional options shared by the listener and the engine
// ABOUTME: Injects stats, metrics and a clock
package playout

import (
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/observe"
)

type options struct {
	stats   *Stats
	metrics *observe.Metrics
	now     func() time.Time
}

// Option customizes a Listener or Engine
type Option func(*options)

// WithStats shares a Stats between components
func WithStats(s *Stats) Option {
	return func(o *options) { o.stats = s }
}

// WithMetrics records to OpenTelemetry instruments
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.stats == nil {
		o.stats = &Stats{}
	}
	return o
}
