// SPDX-License-Identifier: MIT
package audio

import (
	"sync/atomic"

	"verb/pkg/bitint"
)

// Ring is a lock-free single-producer, single-consumer queue of samples.
//
// The audio callback is the only producer and the recorder goroutine the
// only consumer. Positions increase monotonically and are masked into a
// power-of-two buffer; the producer publishes writePos after copying, the
// consumer publishes readPos after copying, so each side only ever sees
// fully written slots.
type Ring struct {
	writePos atomic.Uint64
	_        [56]byte // Keep the two cursors on separate cache lines.
	readPos  atomic.Uint64
	_        [56]byte

	buf  []float32
	mask uint64
}

// NewRing returns a ring holding at least minSize samples.
func NewRing(minSize int) *Ring {
	size := bitint.NextPowerOfTwo(minSize)
	return &Ring{
		buf:  make([]float32, size),
		mask: uint64(size - 1),
	}
}

// Cap returns the ring capacity in samples.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of samples waiting to be read.
func (r *Ring) Len() int {
	return int(r.writePos.Load() - r.readPos.Load())
}

// Free returns the space available to the producer. It can only grow until
// the producer writes again.
func (r *Ring) Free() int {
	return len(r.buf) - r.Len()
}

// Write copies as much of p as fits and returns the count. Producer only;
// never blocks or allocates.
func (r *Ring) Write(p []float32) int {
	w := r.writePos.Load()
	free := uint64(len(r.buf)) - (w - r.readPos.Load())
	n := min(uint64(len(p)), free)
	if n == 0 {
		return 0
	}

	pos := w & r.mask
	first := min(n, uint64(len(r.buf))-pos)
	copy(r.buf[pos:pos+first], p[:first])
	copy(r.buf[:n-first], p[first:n])

	r.writePos.Store(w + n)
	return int(n)
}

// Read copies up to len(p) queued samples into p and returns the count.
// Consumer only.
func (r *Ring) Read(p []float32) int {
	rd := r.readPos.Load()
	n := min(uint64(len(p)), r.writePos.Load()-rd)
	if n == 0 {
		return 0
	}

	pos := rd & r.mask
	first := min(n, uint64(len(r.buf))-pos)
	copy(p[:first], r.buf[pos:pos+first])
	copy(p[first:n], r.buf[:n-first])

	r.readPos.Store(rd + n)
	return int(n)
}
