// SPDX-License-Identifier: MIT
/*
Package reverb implements a multi-tap delay-line reverb.

A bank of circular delay lines with lengths spread between roughly a third
of a second and two and a half seconds is mixed through a triangular tap
envelope into one feedback signal. That signal is written back into every
line (a fully connected feedback network) and, scaled down, becomes the wet
output sample.

Real-Time Safety:
- All delay storage is allocated by NewEngine
- Process and ProcessBlock never allocate, lock or block
- An Engine is owned by a single audio goroutine; it is not safe for
  concurrent use
*/
package reverb

import (
	"errors"
	"fmt"
	"math"
)

// Delay schedule and mixing constants. The schedule is evaluated in float32
// so that line lengths are reproducible sample for sample.
const (
	MinDelayTime  float32 = 0.10 // Seconds; the first value is stepped past before use.
	MaxDelayTime  float32 = 2.50 // Seconds; tested before each step.
	DelayTimeStep float32 = 0.25 // Seconds added per line.

	DecayPerBounce float32 = 0.1 // Stored configuration, not applied in the mix.
	MaxTapGain     float32 = 0.6 // Peak of the triangular tap envelope.
	FeedScale      float32 = 100 // Input gain into the network, undone on output.

	MaxSampleRate = 384000 // Bounds delay storage at construction.
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be a finite value between 1 and 384000 Hz")
	ErrNoDelayLines      = errors.New("sample rate too low to build any delay line")
)

// Engine is the reverb state: its delay lines and precomputed tap weights.
type Engine struct {
	lines   []*DelayLine
	weights []float32
	decay   float32
	rate    int32
}

// ScheduleEntry is one step of the delay-time schedule.
type ScheduleEntry struct {
	Seconds float32
	Length  int
}

// Schedule returns the delay times and line lengths for a sample rate.
//
// The bound is tested before the step is applied, so the last time used is
// the first one past MaxDelayTime (2.60 s). Entries whose length is not
// greater than one sample are still reported with their computed length;
// NewEngine skips them.
func Schedule(sampleRate int32) []ScheduleEntry {
	var entries []ScheduleEntry
	rate := float32(sampleRate)
	for t := MinDelayTime; !(t > MaxDelayTime); {
		t += DelayTimeStep
		entries = append(entries, ScheduleEntry{
			Seconds: t,
			Length:  int(float32(t * rate)),
		})
	}
	return entries
}

// TapWeights computes the triangular envelope for n taps. Weights rise from
// 0 to MaxTapGain over the first third of the taps and then fall linearly
// with the same slope, going negative for the last taps of a large bank.
// With fewer than three taps the envelope collapses and every tap gets
// MaxTapGain.
func TapWeights(n int) []float32 {
	weights := make([]float32, n)
	mid := n / 3
	if mid == 0 {
		for i := range weights {
			weights[i] = MaxTapGain
		}
		return weights
	}

	fmid := float32(mid)
	for x := range weights {
		fx := float32(x)
		if x > mid {
			weights[x] = (1 - (fx-fmid)/fmid) * MaxTapGain
		} else {
			weights[x] = (fx / fmid) * MaxTapGain
		}
	}
	return weights
}

// NewEngine builds the delay bank for sampleRate. The rate is truncated to
// whole hertz before the schedule is evaluated.
func NewEngine(sampleRate float64) (*Engine, error) {
	if math.IsNaN(sampleRate) || sampleRate < 1 || sampleRate > MaxSampleRate {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSampleRate, sampleRate)
	}
	rate := int32(sampleRate)

	var lines []*DelayLine
	for _, entry := range Schedule(rate) {
		if entry.Length <= 1 {
			continue
		}
		line, err := NewDelayLine(entry.Length)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %d Hz", ErrNoDelayLines, rate)
	}

	return &Engine{
		lines:   lines,
		weights: TapWeights(len(lines)),
		decay:   DecayPerBounce,
		rate:    rate,
	}, nil
}

// Process pushes one sample through the feedback network and returns the
// wet sample.
func (e *Engine) Process(sample float32) float32 {
	var receive float32
	for x, line := range e.lines {
		receive += line.ReadNext() * e.weights[x]
	}

	receive = receive/float32(len(e.lines)) + sample*FeedScale

	for _, line := range e.lines {
		line.WriteNext(receive)
	}

	return receive / FeedScale
}

// ProcessBlock runs Process over buf in place, in order.
func (e *Engine) ProcessBlock(buf []float32) {
	for i, sample := range buf {
		buf[i] = e.Process(sample)
	}
}

// Len returns the number of delay lines.
func (e *Engine) Len() int {
	return len(e.lines)
}

// Lengths returns the length of each delay line in samples.
func (e *Engine) Lengths() []int {
	lengths := make([]int, len(e.lines))
	for i, line := range e.lines {
		lengths[i] = line.Len()
	}
	return lengths
}

// Weights returns a copy of the tap weights.
func (e *Engine) Weights() []float32 {
	return append([]float32(nil), e.weights...)
}

// Decay returns the per-bounce decay coefficient.
func (e *Engine) Decay() float32 {
	return e.decay
}

// SampleRate returns the whole-hertz rate the bank was built for.
func (e *Engine) SampleRate() int32 {
	return e.rate
}

// Reset silences every delay line.
func (e *Engine) Reset() {
	for _, line := range e.lines {
		line.Reset()
	}
}
