// ABOUTME: Tests for the playback engine
// ABOUTME: Uses a recording sink to check order, buffering, underruns and volume
package playout

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// recordingSink captures written frames
type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	times  []time.Time
	err    error
}

func (s *recordingSink) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	s.times = append(s.times, time.Now())
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.frames {
		out = append(out, string(f))
	}
	return out
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		StartupBuffer:   20 * time.Millisecond,
		UnderrunTimeout: 10 * time.Millisecond,
		Volume:          100,
	}
}

func runEngine(t *testing.T, e *Engine) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func TestEnginePlaysInArrivalOrder(t *testing.T) {
	q := NewQueue(0, "")
	sink := &recordingSink{}
	e := NewEngine(q, sink, testEngineConfig())

	q.Push([]byte("A"))
	q.Push([]byte("B"))
	q.Push([]byte("C"))
	runEngine(t, e)

	waitFor(t, "three frames", func() bool { return sink.count() >= 3 })
	q.Push([]byte("D"))
	waitFor(t, "four frames", func() bool { return sink.count() >= 4 })

	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, sink.written()); diff != "" {
		t.Errorf("unexpected playback order (-want +got):\n%s", diff)
	}
}

func TestEngineWaitsStartupBuffer(t *testing.T) {
	q := NewQueue(0, "")
	sink := &recordingSink{}
	cfg := testEngineConfig()
	cfg.StartupBuffer = 80 * time.Millisecond
	e := NewEngine(q, sink, cfg)

	q.Push([]byte("A"))
	start := time.Now()
	runEngine(t, e)

	if e.Playing() {
		t.Error("engine reported playing before the startup buffer elapsed")
	}

	waitFor(t, "first frame", func() bool { return sink.count() == 1 })
	if waited := sink.times[0].Sub(start); waited < 70*time.Millisecond {
		t.Errorf("first frame played after %v, expected startup buffer of 80ms", waited)
	}
	if !e.Playing() {
		t.Error("expected engine to report playing")
	}
}

func TestEngineCountsUnderrunPerEpisode(t *testing.T) {
	q := NewQueue(0, "")
	sink := &recordingSink{}
	stats := &Stats{}
	e := NewEngine(q, sink, testEngineConfig(), WithStats(stats))
	runEngine(t, e)

	// Starve for several timeouts: still one episode
	waitFor(t, "first underrun", func() bool { return stats.Snapshot(0).Underruns == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := stats.Snapshot(0).Underruns; got != 1 {
		t.Errorf("expected one underrun for one starvation episode, got %d", got)
	}

	// Recover, then starve again
	q.Push([]byte("A"))
	waitFor(t, "frame played", func() bool { return sink.count() == 1 })
	waitFor(t, "second underrun", func() bool { return stats.Snapshot(0).Underruns == 2 })

	if got := stats.Snapshot(0).Played; got != 1 {
		t.Errorf("expected 1 played frame, got %d", got)
	}
}

func TestEngineReturnsWriteError(t *testing.T) {
	q := NewQueue(0, "")
	sink := &recordingSink{err: errors.New("device gone")}
	e := NewEngine(q, sink, testEngineConfig())

	q.Push([]byte("A"))
	_, done := runEngine(t, e)

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected write error")
		}
		done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop on write error")
	}
}

func TestEngineStopsDuringStartupBuffer(t *testing.T) {
	q := NewQueue(0, "")
	cfg := testEngineConfig()
	cfg.StartupBuffer = time.Hour
	e := NewEngine(q, &recordingSink{}, cfg)

	cancel, done := runEngine(t, e)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
		done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop while buffering")
	}
}

func TestEngineAppliesVolume(t *testing.T) {
	q := NewQueue(0, "")
	sink := &recordingSink{}
	e := NewEngine(q, sink, testEngineConfig())
	e.SetVolume(50)

	frame := binary.LittleEndian.AppendUint16(nil, 1000)
	q.Push(frame)
	runEngine(t, e)

	waitFor(t, "frame played", func() bool { return sink.count() == 1 })
	sink.mu.Lock()
	got := int16(binary.LittleEndian.Uint16(sink.frames[0]))
	sink.mu.Unlock()
	if got != 500 {
		t.Errorf("expected sample scaled to 500, got %d", got)
	}
}

func TestEngineVolumeClamp(t *testing.T) {
	e := NewEngine(NewQueue(0, ""), &recordingSink{}, EngineConfig{Volume: 150})
	if e.Volume() != 100 {
		t.Errorf("expected volume clamped to 100, got %d", e.Volume())
	}
	e.SetVolume(-5)
	if e.Volume() != 0 {
		t.Errorf("expected volume clamped to 0, got %d", e.Volume())
	}
	e.SetMuted(true)
	if !e.Muted() {
		t.Error("expected muted")
	}
}
