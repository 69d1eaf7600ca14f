// ABOUTME: Tests for the jitter estimator
// ABOUTME: Verifies steady streams stay at zero and variable delay converges
package playout

import (
	"testing"
	"time"
)

func TestJitterSteadyStream(t *testing.T) {
	var j Jitter
	for i := 0; i < 100; i++ {
		sent := float64(i) * 0.0232
		// Constant 5ms delay plus a fixed clock offset
		j.Update(sent, sent+0.005+1000)
	}
	if j.Value() != 0 {
		t.Errorf("expected zero jitter for constant delay, got %v", j.Value())
	}
}

func TestJitterAlternatingDelay(t *testing.T) {
	var j Jitter
	for i := 0; i < 1000; i++ {
		sent := float64(i) * 0.0232
		delay := 0.001
		if i%2 == 1 {
			delay = 0.005
		}
		j.Update(sent, sent+delay)
	}

	// Every transit difference is 4ms, so the estimate converges to 4ms
	got := j.Value()
	if got < 3900*time.Microsecond || got > 4100*time.Microsecond {
		t.Errorf("expected ~4ms jitter, got %v", got)
	}
}

func TestJitterFirstPacket(t *testing.T) {
	var j Jitter
	if got := j.Update(10, 12); got != 0 {
		t.Errorf("expected zero jitter after one packet, got %v", got)
	}
}
