// SPDX-License-Identifier: MIT
package signal

import (
	"math"
	"testing"
)

const testSampleRate = 44100

func TestImpulse(t *testing.T) {
	buf := Impulse(4)
	want := []float32{1, 0, 0, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("Impulse(4) = %v", buf)
		}
	}
	if Impulse(0) != nil {
		t.Error("Impulse(0) should be nil")
	}
}

func TestSinePeak(t *testing.T) {
	buf := Sine(testSampleRate, testSampleRate, 441, 0.5)
	peak, _ := Peak(buf)
	if math.Abs(float64(peak)-0.5) > 1e-3 {
		t.Errorf("peak = %v, want 0.5", peak)
	}
	if buf[0] != 0 {
		t.Errorf("sine should start at 0, got %v", buf[0])
	}
}

func TestComplexStaysBelowAmplitude(t *testing.T) {
	peak, _ := Peak(Complex(4096, testSampleRate, 0.9))
	if peak > 0.9 || peak < 0.5 {
		t.Errorf("peak = %v, want in (0.5, 0.9]", peak)
	}
}

func TestPeak(t *testing.T) {
	tests := []struct {
		name string
		buf  []float32
		peak float32
		at   int
	}{
		{"Empty", nil, 0, -1},
		{"Silence", []float32{0, 0}, 0, 0},
		{"Negative", []float32{0.1, -0.7, 0.5}, 0.7, 1},
		{"First of equals", []float32{0.3, -0.3}, 0.3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peak, at := Peak(tt.buf)
			if peak != tt.peak || at != tt.at {
				t.Errorf("Peak = (%v, %d), want (%v, %d)", peak, at, tt.peak, tt.at)
			}
		})
	}
}

func TestFirstNonZero(t *testing.T) {
	buf := []float32{1, 0, 0, -0.01, 0.5}
	if got := FirstNonZero(buf, 1, 0); got != 3 {
		t.Errorf("FirstNonZero from 1 = %d, want 3", got)
	}
	if got := FirstNonZero(buf, 1, 0.1); got != 4 {
		t.Errorf("FirstNonZero above 0.1 = %d, want 4", got)
	}
	if got := FirstNonZero(buf, 5, 0); got != -1 {
		t.Errorf("FirstNonZero past end = %d, want -1", got)
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	src := []float32{1, 2, 3, 4, 5, 6}
	planes := [][]float32{make([]float32, 3), make([]float32, 3)}
	Deinterleave(planes, src)
	if planes[0][2] != 5 || planes[1][0] != 2 {
		t.Fatalf("Deinterleave = %v", planes)
	}
	dst := make([]float32, len(src))
	Interleave(dst, planes, 3)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("Interleave = %v, want %v", dst, src)
		}
	}
}
