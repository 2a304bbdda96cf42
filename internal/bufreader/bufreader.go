// Package bufreader implements the refillable byte buffer shared by
// every format-layer variant (spec.md §4.4): a fixed-size (>= 1 MiB)
// buffer with ptr/remain, refilled by memmove-then-append whenever the
// previous decode attempt consumed everything or returned Truncated.
package bufreader

import (
	"errors"
	"io"

	"github.com/valyala/bytebufferpool"
)

// MinSize is the minimum buffer capacity mandated by spec.md §4.4.
const MinSize = 1 << 20 // 1 MiB

// Outcome classifies the result of a Fill attempt.
type Outcome uint8

const (
	// OK means at least one new byte was appended.
	OK Outcome = iota
	// EOS means the underlying reader is exhausted; a partial message may
	// still remain buffered.
	EOS
	// Corrupted means the reader made no progress (returned exactly
	// len(remain) bytes with none of them new) -- a framing bug, not a
	// transient condition.
	Corrupted
)

// ErrTruncated signals "need more data"; decoders return it from Parse
// when the buffered bytes contain only a partial message.
var ErrTruncated = errors.New("bufreader: truncated message")

// Reader wraps an io.Reader with the ptr/remain discipline: bytes are
// consumed from the front via Advance, and Fill slides any leftover
// bytes to offset 0 before reading more.
type Reader struct {
	src  io.Reader
	buf  *bytebufferpool.ByteBuffer
	data []byte // buf.B[:remain], offset-0 view of unconsumed bytes
	size int
}

// New wraps src with a refillable buffer of at least MinSize bytes.
func New(src io.Reader, size int) *Reader {
	if size < MinSize {
		size = MinSize
	}
	bb := bytebufferpool.Get()
	if cap(bb.B) < size {
		bb.B = make([]byte, 0, size)
	}
	return &Reader{src: src, buf: bb, size: size}
}

// Close releases the pooled buffer back to the pool.
func (r *Reader) Close() error {
	if r.buf != nil {
		bytebufferpool.Put(r.buf)
		r.buf = nil
	}
	return nil
}

// Remain returns the currently buffered, unconsumed bytes.
func (r *Reader) Remain() []byte { return r.data }

// Advance drops n bytes from the front of the buffered data (called
// after a successful Parse consumed n bytes of the message frame).
func (r *Reader) Advance(n int) {
	r.data = r.data[n:]
}

// NeedFill reports whether the buffer must be refilled before the next
// decode attempt: either nothing is buffered, or the previous decode
// returned ErrTruncated.
func (r *Reader) NeedFill(lastErr error) bool {
	return len(r.data) == 0 || errors.Is(lastErr, ErrTruncated)
}

// Fill slides any leftover bytes to offset 0, then reads more from the
// underlying source, appending to the buffered data.
func (r *Reader) Fill() (Outcome, error) {
	before := len(r.data)

	// slide remaining bytes to offset 0
	if before > 0 && before != len(r.buf.B) {
		copy(r.buf.B[:before], r.data)
	}
	r.buf.B = r.buf.B[:before]

	// grow the backing array if it's full of unconsumed data
	if cap(r.buf.B) == len(r.buf.B) {
		grown := make([]byte, len(r.buf.B), cap(r.buf.B)*2)
		copy(grown, r.buf.B)
		r.buf.B = grown
	}

	readInto := r.buf.B[len(r.buf.B):cap(r.buf.B)]
	n, err := r.src.Read(readInto)
	r.buf.B = r.buf.B[:len(r.buf.B)+n]
	r.data = r.buf.B

	switch {
	case n == 0 && before == 0:
		return EOS, io.EOF
	case n == 0:
		// live stream with nothing new yet, or a finite source's last
		// read was empty but bytes remain buffered: not EOS by itself.
		if err != nil && errors.Is(err, io.EOF) {
			return EOS, err
		}
		return OK, err
	case before > 0 && n == before:
		// the fill produced exactly as many bytes as were already
		// buffered before the call: no forward progress was made.
		return Corrupted, errors.New("bufreader: no progress, buffer full")
	default:
		return OK, nil
	}
}
