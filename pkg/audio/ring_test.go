// ABOUTME: Tests for the byte ring buffer
// ABOUTME: Covers wrap-around, overflow refusal and partial reads
package audio

import (
	"bytes"
	"testing"
)

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(8)

	if n := rb.Write([]byte{1, 2, 3, 4, 5, 6}); n != 6 {
		t.Fatalf("expected 6 bytes written, got %d", n)
	}

	out := make([]byte, 4)
	if n := rb.Read(out); n != 4 {
		t.Fatalf("expected 4 bytes read, got %d", n)
	}
	if !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Errorf("unexpected read %v", out)
	}

	// Wraps past the end of the backing array
	if n := rb.Write([]byte{7, 8, 9, 10, 11}); n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}

	out = make([]byte, 8)
	n := rb.Read(out)
	if n != 7 {
		t.Fatalf("expected 7 bytes read, got %d", n)
	}
	if !bytes.Equal(out[:n], []byte{5, 6, 7, 8, 9, 10, 11}) {
		t.Errorf("unexpected read %v", out[:n])
	}
}

func TestRingBufferRefusesOverflow(t *testing.T) {
	rb := NewRingBuffer(4)

	if n := rb.Write([]byte{1, 2, 3, 4, 5, 6}); n != 4 {
		t.Errorf("expected only 4 bytes stored, got %d", n)
	}
	if rb.Free() != 0 {
		t.Errorf("expected buffer full, free=%d", rb.Free())
	}
	if n := rb.Write([]byte{7}); n != 0 {
		t.Errorf("expected full buffer to refuse writes, stored %d", n)
	}

	out := make([]byte, 4)
	rb.Read(out)
	if !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Errorf("overflowed bytes must be dropped, got %v", out)
	}
}

func TestRingBufferReset(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]byte{1, 2, 3})
	rb.Reset()

	if rb.Available() != 0 {
		t.Errorf("expected empty buffer after reset, available=%d", rb.Available())
	}
	if rb.Free() != 4 {
		t.Errorf("expected 4 free bytes after reset, got %d", rb.Free())
	}
}
