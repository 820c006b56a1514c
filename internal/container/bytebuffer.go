// Package container implements the low-level growable containers the rest
// of filagree is built on: a byte buffer, a generic dynamic array, a
// chaining hash map, and a singly linked LIFO stack.
package container

import "bytes"

// ByteBuffer owns a resizable byte array with an independent read and
// write cursor. Appends grow the backing array as needed.
type ByteBuffer struct {
	data  []byte
	rpos  int
	wpos  int
}

// NewByteBuffer returns an empty buffer ready to append to.
func NewByteBuffer() *ByteBuffer {
	return &ByteBuffer{}
}

// NewByteBufferFrom copies data into a new buffer positioned at its start.
func NewByteBufferFrom(data []byte) *ByteBuffer {
	b := &ByteBuffer{data: make([]byte, len(data))}
	copy(b.data, data)
	return b
}

// Len returns the number of bytes currently stored.
func (b *ByteBuffer) Len() int { return len(b.data) }

// Bytes returns the buffer's backing slice. Callers must not mutate it.
func (b *ByteBuffer) Bytes() []byte { return b.data }

// Append grows the buffer by writing p at the write cursor.
func (b *ByteBuffer) Append(p ...byte) {
	b.data = append(b.data, p...)
	b.wpos = len(b.data)
}

// AppendByte is the single-byte fast path for Append.
func (b *ByteBuffer) AppendByte(c byte) {
	b.data = append(b.data, c)
	b.wpos = len(b.data)
}

// ReadByte reads one byte at the read cursor and advances it.
// The second return is false once the cursor reaches the end.
func (b *ByteBuffer) ReadByte() (byte, bool) {
	if b.rpos >= len(b.data) {
		return 0, false
	}
	c := b.data[b.rpos]
	b.rpos++
	return c, true
}

// Copy returns a new buffer with an independent backing array.
func (b *ByteBuffer) Copy() *ByteBuffer {
	return NewByteBufferFrom(b.data)
}

// Concat returns a new buffer holding b's bytes followed by other's.
func (b *ByteBuffer) Concat(other *ByteBuffer) *ByteBuffer {
	out := make([]byte, 0, len(b.data)+len(other.data))
	out = append(out, b.data...)
	out = append(out, other.data...)
	return &ByteBuffer{data: out}
}

// Equal reports whether two buffers hold identical bytes.
func (b *ByteBuffer) Equal(other *ByteBuffer) bool {
	return bytes.Equal(b.data, other.data)
}

// Find returns the index of the first occurrence of needle, or -1.
func (b *ByteBuffer) Find(needle []byte) int {
	return bytes.Index(b.data, needle)
}

// Contains reports whether needle occurs anywhere in the buffer.
func (b *ByteBuffer) Contains(needle []byte) bool {
	return bytes.Contains(b.data, needle)
}

// Replace returns a new buffer with every occurrence of old replaced by new.
func (b *ByteBuffer) Replace(old, new []byte) *ByteBuffer {
	return NewByteBufferFrom(bytes.ReplaceAll(b.data, old, new))
}

// Part returns the sub-slice [from, to) as a new buffer. Out-of-range
// bounds are clamped, mirroring the permissive slicing the string/list
// "part" built-in method performs on container values.
func (b *ByteBuffer) Part(from, to int) *ByteBuffer {
	if from < 0 {
		from = 0
	}
	if to > len(b.data) {
		to = len(b.data)
	}
	if from >= to {
		return NewByteBuffer()
	}
	return NewByteBufferFrom(b.data[from:to])
}
