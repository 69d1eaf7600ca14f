// ABOUTME: Real-time pacing for synthetic inputs
// ABOUTME: Releases one frame per frame duration against an absolute schedule
package input

import (
	"context"
	"time"
)

// pacer emits ticks on an absolute schedule so sleep overshoot does not
// accumulate into drift
type pacer struct {
	interval time.Duration
	next     time.Time
	now      func() time.Time
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval, now: time.Now}
}

// wait blocks until the next frame is due
func (p *pacer) wait(ctx context.Context) error {
	now := p.now()
	if p.next.IsZero() {
		p.next = now
	}

	// Fell more than a frame behind: resync instead of bursting
	if now.Sub(p.next) > p.interval {
		p.next = now
	}

	if d := p.next.Sub(now); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	p.next = p.next.Add(p.interval)
	return nil
}
