// SPDX-License-Identifier: MIT
// Package signal generates and measures float32 test signals.
package signal

import "math"

// Impulse returns n samples with a unit impulse at index 0.
func Impulse(n int) []float32 {
	if n <= 0 {
		return nil
	}
	buf := make([]float32, n)
	buf[0] = 1
	return buf
}

// Sine returns n samples of a sine at frequency Hz with the given amplitude.
func Sine(n int, sampleRate, frequency, amplitude float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		t := float64(i) / sampleRate
		buf[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buf
}

// Complex returns a 440 Hz tone with its second and third harmonics,
// peaking near amplitude.
func Complex(n int, sampleRate, amplitude float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		t := float64(i) / sampleRate
		s := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buf[i] = float32(s * amplitude)
	}
	return buf
}

// Peak returns the largest absolute sample value and its index. An empty
// buffer returns (0, -1).
func Peak(buf []float32) (float32, int) {
	peak, at := float32(0), -1
	for i, s := range buf {
		if s < 0 {
			s = -s
		}
		if at < 0 || s > peak {
			peak, at = s, i
		}
	}
	return peak, at
}

// FirstNonZero returns the index of the first sample at or after from whose
// magnitude exceeds threshold, or -1.
func FirstNonZero(buf []float32, from int, threshold float32) int {
	for i := max(from, 0); i < len(buf); i++ {
		if s := buf[i]; s > threshold || s < -threshold {
			return i
		}
	}
	return -1
}

// Deinterleave splits frames of interleaved samples into per-channel
// buffers. dst must hold channels buffers of at least len(src)/channels.
func Deinterleave(dst [][]float32, src []float32) {
	channels := len(dst)
	if channels == 0 {
		return
	}
	for i, s := range src {
		dst[i%channels][i/channels] = s
	}
}

// Interleave is the inverse of Deinterleave, writing frames frames.
func Interleave(dst []float32, src [][]float32, frames int) {
	channels := len(src)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			dst[f*channels+ch] = src[ch][f]
		}
	}
}
