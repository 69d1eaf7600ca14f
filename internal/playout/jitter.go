// ABOUTME: Interarrival jitter estimator
// ABOUTME: RFC 3550 running estimate from origination and arrival timestamps
package playout

import "time"

// Jitter tracks the RFC 3550 interarrival jitter of a stream. The clock
// offset between sender and receiver cancels out of the difference.
type Jitter struct {
	prevTransit float64
	jitter      float64
	primed      bool
}

// Update folds in one packet (both times in seconds) and returns the new estimate
func (j *Jitter) Update(sent, arrived float64) time.Duration {
	transit := arrived - sent
	if !j.primed {
		j.prevTransit = transit
		j.primed = true
		return 0
	}

	d := transit - j.prevTransit
	j.prevTransit = transit
	if d < 0 {
		d = -d
	}
	j.jitter += (d - j.jitter) / 16
	return j.Value()
}

// Value returns the current estimate
func (j *Jitter) Value() time.Duration {
	return time.Duration(j.jitter * float64(time.Second))
}
