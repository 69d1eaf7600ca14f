// ABOUTME: Thread-safe byte ring buffer
// ABOUTME: Bridges callback-driven devices and blocking frame reads/writes
package audio

import "sync"

// RingBuffer provides a thread-safe circular buffer of PCM bytes
type RingBuffer struct {
	buffer   []byte
	readPos  int
	writePos int
	size     int
	count    int // Number of bytes currently in buffer
	mu       sync.Mutex
}

// NewRingBuffer creates a ring buffer with given capacity (in bytes)
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]byte, capacity),
		size:   capacity,
	}
}

// Write copies as much of p as fits and returns the number of bytes stored.
// Bytes that do not fit are not stored; the caller decides whether to wait
// or drop them.
func (rb *RingBuffer) Write(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(p), rb.size-rb.count)
	for i := 0; i < n; {
		chunk := copy(rb.buffer[rb.writePos:], p[i:n])
		rb.writePos = (rb.writePos + chunk) % rb.size
		i += chunk
	}
	rb.count += n
	return n
}

// Read copies up to len(p) buffered bytes into p and returns the count
func (rb *RingBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(p), rb.count)
	for i := 0; i < n; {
		end := rb.readPos + (n - i)
		if end > rb.size {
			end = rb.size
		}
		chunk := copy(p[i:], rb.buffer[rb.readPos:end])
		rb.readPos = (rb.readPos + chunk) % rb.size
		i += chunk
	}
	rb.count -= n
	return n
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns the number of free bytes in the buffer
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}

// Reset discards buffered data
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos, rb.writePos, rb.count = 0, 0, 0
}
