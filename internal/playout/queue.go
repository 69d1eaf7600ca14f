// ABOUTME: FIFO playout queue shared by the listener and the playback loop
// ABOUTME: Non-blocking push, optional bound with drop policy, pop with timeout
package playout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrEmpty is returned by Pop when no payload arrived before the timeout
var ErrEmpty = errors.New("playout queue empty")

// DropPolicy selects which payload a full bounded queue discards
type DropPolicy string

const (
	// DropOldest evicts the head so the newest audio is kept
	DropOldest DropPolicy = "drop-oldest"
	// DropNewest rejects the incoming payload
	DropNewest DropPolicy = "drop-newest"
)

// ParseDropPolicy validates a policy name; empty means DropOldest
func ParseDropPolicy(s string) (DropPolicy, error) {
	switch DropPolicy(s) {
	case "", DropOldest:
		return DropOldest, nil
	case DropNewest:
		return DropNewest, nil
	default:
		return "", fmt.Errorf("unknown drop policy %q (supported: %s, %s)", s, DropOldest, DropNewest)
	}
}

// Queue is a strictly FIFO queue of frame payloads. One producer and one
// consumer is the expected use, but all methods are safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	items  [][]byte
	head   int
	limit  int // 0 means unbounded
	policy DropPolicy
	notify chan struct{}
}

// NewQueue creates a queue. limit <= 0 leaves it unbounded.
func NewQueue(limit int, policy DropPolicy) *Queue {
	if policy == "" {
		policy = DropOldest
	}
	return &Queue{
		limit:  max(limit, 0),
		policy: policy,
		notify: make(chan struct{}, 1),
	}
}

// Push appends payload at the tail without blocking. It reports whether a
// payload was discarded to respect the bound.
func (q *Queue) Push(payload []byte) (dropped bool) {
	q.mu.Lock()
	if q.limit > 0 && q.lenLocked() >= q.limit {
		dropped = true
		if q.policy == DropNewest {
			q.mu.Unlock()
			return dropped
		}
		q.popLocked()
	}
	q.items = append(q.items, payload)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return dropped
}

// TryPop removes and returns the head, or false if the queue is empty
func (q *Queue) TryPop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lenLocked() == 0 {
		return nil, false
	}
	return q.popLocked(), true
}

// Pop waits up to timeout for a payload. It returns ErrEmpty on timeout and
// the context error if ctx ends first.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if p, ok := q.TryPop(); ok {
		return p, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			// A push may have landed between the last check and the deadline
			if p, ok := q.TryPop(); ok {
				return p, nil
			}
			return nil, ErrEmpty
		case <-q.notify:
			if p, ok := q.TryPop(); ok {
				return p, nil
			}
		}
	}
}

// Len returns the number of queued payloads
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *Queue) lenLocked() int {
	return len(q.items) - q.head
}

// popLocked removes the head (must hold q.mu, queue non-empty)
func (q *Queue) popLocked() []byte {
	p := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix dominates the backing array
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return p
}
