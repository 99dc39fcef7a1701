// SPDX-License-Identifier: MIT
package reverb

import (
	"errors"
	"fmt"
)

// MinDelayLength is the shortest delay line that keeps the one-slot gap
// between the read and write cursors.
const MinDelayLength = 2

var ErrDelayTooShort = errors.New("delay line length must be at least 2")

// DelayLine is a fixed-length circular buffer with independent read and
// write cursors. The read cursor starts one slot ahead of the write cursor,
// so a sample written now is read back Len()-1 calls later.
type DelayLine struct {
	buffer   []float32
	readPos  int
	writePos int
}

// NewDelayLine allocates a zero-filled delay line of the given length.
func NewDelayLine(length int) (*DelayLine, error) {
	if length < MinDelayLength {
		return nil, fmt.Errorf("%w: got %d", ErrDelayTooShort, length)
	}
	return &DelayLine{
		buffer:   make([]float32, length),
		readPos:  1,
		writePos: 0,
	}, nil
}

// Len returns the number of slots in the line.
func (d *DelayLine) Len() int {
	return len(d.buffer)
}

// ReadNext returns the sample under the read cursor and advances it.
func (d *DelayLine) ReadNext() float32 {
	sample := d.buffer[d.readPos]
	d.readPos++
	if d.readPos == len(d.buffer) {
		d.readPos = 0
	}
	return sample
}

// WriteNext stores sample under the write cursor and advances it.
func (d *DelayLine) WriteNext(sample float32) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos == len(d.buffer) {
		d.writePos = 0
	}
}

// Reset zeroes the storage and restores the initial cursor positions.
func (d *DelayLine) Reset() {
	clear(d.buffer)
	d.readPos = 1
	d.writePos = 0
}
