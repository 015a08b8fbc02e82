package engine

// BoundedBuffer collects writes up to a fixed capacity and discards
// the overflow, remembering that it did.
type BoundedBuffer struct {
	max       int
	buf       []byte
	truncated bool
}

// NewBoundedBuffer creates a buffer that keeps at most max bytes.
func NewBoundedBuffer(max int) *BoundedBuffer {
	return &BoundedBuffer{max: max}
}

// Write never fails; bytes past the capacity are dropped and the
// buffer is marked truncated.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	room := b.max - len(b.buf)
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the captured bytes.
func (b *BoundedBuffer) String() string { return string(b.buf) }

// Len returns the number of captured bytes.
func (b *BoundedBuffer) Len() int { return len(b.buf) }

// Truncated reports whether any write overflowed the capacity.
func (b *BoundedBuffer) Truncated() bool { return b.truncated }
