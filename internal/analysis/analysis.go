// SPDX-License-Identifier: MIT
/*
Package analysis measures the reverb's impulse response.

The report covers the delay schedule and tap weights the engine was built
with, where the first echo lands, the peak and total energy of the
response, the Schroeder decay time to -60 dB and the strongest frequency in
the response's spectrum.
*/
package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"verb/internal/reverb"
	"verb/pkg/bitint"
	"verb/pkg/signal"
)

// DecayFloorDB is the level the decay time is measured to.
const DecayFloorDB = -60.0

var ErrNoFrames = errors.New("impulse response needs at least one frame")

// Report describes one impulse response.
type Report struct {
	SampleRate int32
	Schedule   []reverb.ScheduleEntry
	Lengths    []int // Lines actually built.
	Weights    []float32
	Frames     int

	FirstReturn int // Sample index of the first echo, -1 if none.
	Peak        float32
	PeakIndex   int
	Energy      float64

	DecayTime    float64 // Seconds to DecayFloorDB; valid when DecayReached.
	DecayReached bool
	DominantHz   float64
}

// ImpulseResponse resets e and returns its response to a unit impulse over
// frames samples.
func ImpulseResponse(e *reverb.Engine, frames int) []float32 {
	e.Reset()
	ir := signal.Impulse(frames)
	e.ProcessBlock(ir)
	return ir
}

// Analyze builds a fresh engine for sampleRate and measures seconds of its
// impulse response.
func Analyze(sampleRate, seconds float64) (*Report, error) {
	e, err := reverb.NewEngine(sampleRate)
	if err != nil {
		return nil, err
	}
	frames := int(seconds * float64(e.SampleRate()))
	if frames < 1 {
		return nil, fmt.Errorf("%w: %.3fs at %d Hz", ErrNoFrames, seconds, e.SampleRate())
	}

	ir := ImpulseResponse(e, frames)
	r := &Report{
		SampleRate: e.SampleRate(),
		Schedule:   reverb.Schedule(e.SampleRate()),
		Lengths:    e.Lengths(),
		Weights:    e.Weights(),
		Frames:     frames,
	}
	r.FirstReturn = signal.FirstNonZero(ir, 1, 0)
	r.Peak, r.PeakIndex = signal.Peak(ir)

	h := toFloat64(ir)
	r.Energy = floats.Dot(h, h)
	if at := DecayIndex(EnergyDecayCurve(h), DecayFloorDB); at >= 0 {
		r.DecayTime = float64(at) / float64(r.SampleRate)
		r.DecayReached = true
	}
	r.DominantHz = DominantFrequency(ir, float64(r.SampleRate))
	return r, nil
}

func toFloat64(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, s := range src {
		dst[i] = float64(s)
	}
	return dst
}

// EnergyDecayCurve returns the Schroeder backward integral of h in dB
// relative to the total energy. A silent response yields all -Inf.
func EnergyDecayCurve(h []float64) []float64 {
	edc := make([]float64, len(h))
	if len(h) == 0 {
		return edc
	}
	floats.MulTo(edc, h, h)
	floats.Reverse(edc)
	floats.CumSum(edc, edc)
	floats.Reverse(edc)

	total := edc[0]
	for i, e := range edc {
		if total == 0 || e == 0 {
			edc[i] = math.Inf(-1)
			continue
		}
		edc[i] = 10 * math.Log10(e/total)
	}
	return edc
}

// DecayIndex returns the first index where curve is at or below floorDB,
// or -1.
func DecayIndex(curve []float64, floorDB float64) int {
	for i, db := range curve {
		if db <= floorDB {
			return i
		}
	}
	return -1
}

// DominantFrequency returns the frequency of the strongest non-DC bin of
// the zero-padded spectrum of samples, or 0 when there is nothing to
// measure.
func DominantFrequency(samples []float32, sampleRate float64) float64 {
	n := bitint.NextPowerOfTwo(len(samples))
	if n < 2 {
		return 0
	}
	seq := make([]float64, n)
	for i, s := range samples {
		seq[i] = float64(s)
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)
	mags := make([]float64, len(coeffs)-1)
	for i, c := range coeffs[1:] {
		mags[i] = cmplx.Abs(c)
	}
	best := floats.MaxIdx(mags) + 1
	if cmplx.Abs(coeffs[best]) == 0 {
		return 0
	}
	return fft.Freq(best) * sampleRate
}

// WriteTo prints the report.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintf(cw, "Sample rate: %d Hz\n\n", r.SampleRate)
	fmt.Fprintf(cw, "Delay lines (%d):\n", len(r.Lengths))
	built := 0
	for _, entry := range r.Schedule {
		if entry.Length <= 1 {
			fmt.Fprintf(cw, "  %5.2fs  %7d samples  (skipped)\n", entry.Seconds, entry.Length)
			continue
		}
		fmt.Fprintf(cw, "  %5.2fs  %7d samples  weight %+.3f\n", entry.Seconds, entry.Length, r.Weights[built])
		built++
	}

	seconds := float64(r.Frames) / float64(r.SampleRate)
	fmt.Fprintf(cw, "\nImpulse response (%.2fs, %d frames):\n", seconds, r.Frames)
	if r.FirstReturn >= 0 {
		fmt.Fprintf(cw, "  First echo:     sample %d (%.3fs)\n", r.FirstReturn, float64(r.FirstReturn)/float64(r.SampleRate))
	} else {
		fmt.Fprintf(cw, "  First echo:     none\n")
	}
	fmt.Fprintf(cw, "  Peak:           %.4f at sample %d\n", r.Peak, r.PeakIndex)
	fmt.Fprintf(cw, "  Energy:         %.4f\n", r.Energy)
	if r.DecayReached {
		fmt.Fprintf(cw, "  Decay to %.0f dB: %.3fs\n", DecayFloorDB, r.DecayTime)
	} else {
		fmt.Fprintf(cw, "  Decay to %.0f dB: not reached\n", DecayFloorDB)
	}
	fmt.Fprintf(cw, "  Dominant:       %.1f Hz\n", r.DominantHz)
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
