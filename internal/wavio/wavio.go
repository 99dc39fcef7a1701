// SPDX-License-Identifier: MIT
/*
Package wavio moves float32 audio in and out of PCM WAV files.

Samples are interleaved float32 in [-1, 1]. Integer PCM is scaled by the
largest positive value of the bit depth; out-of-range floats saturate when
quantised because integer PCM cannot represent them.
*/
package wavio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

var (
	ErrNotWAV           = errors.New("not a valid WAV file")
	ErrNotPCM           = errors.New("WAV file is not integer PCM")
	ErrUnsupportedDepth = errors.New("unsupported bit depth")
	ErrNoAudio          = errors.New("WAV file has no audio channels")
)

// Clip is a decoded WAV file.
type Clip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []float32 // Interleaved.
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

func fullScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16, 24, 32:
		return float64(int64(1)<<(bitDepth-1) - 1), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedDepth, bitDepth)
	}
}

// ToPCM quantises src into dst at bitDepth, saturating at full scale.
func ToPCM(dst []int, src []float32, bitDepth int) error {
	scale, err := fullScale(bitDepth)
	if err != nil {
		return err
	}
	for i, s := range src {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		dst[i] = int(float64(s) * scale)
	}
	return nil
}

// FromPCM converts integer samples at bitDepth to float32.
func FromPCM(dst []float32, src []int, bitDepth int) error {
	scale, err := fullScale(bitDepth)
	if err != nil {
		return err
	}
	for i, s := range src {
		dst[i] = float32(float64(s) / scale)
	}
	return nil
}

// ReadFile decodes an integer PCM WAV file. IEEE float and compressed
// formats are rejected with ErrNotPCM.
func ReadFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrNotWAV, path)
	}
	if f := dec.WavAudioFormat; f != formatPCM && f != formatExtensible {
		return nil, fmt.Errorf("%w: %s has format tag %d", ErrNotPCM, path, f)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if dec.NumChans == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAudio, path)
	}

	clip := &Clip{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Samples:    make([]float32, len(buf.Data)),
	}
	if err := FromPCM(clip.Samples, buf.Data, clip.BitDepth); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// Writer streams interleaved float32 samples into a PCM WAV file.
type Writer struct {
	file     *os.File
	enc      *wav.Encoder
	buf      *audio.IntBuffer
	bitDepth int
	frames   int
}

// Create opens path for writing and prepares an encoder.
func Create(path string, sampleRate, channels, bitDepth int) (*Writer, error) {
	if _, err := fullScale(bitDepth); err != nil {
		return nil, err
	}
	if channels < 1 {
		return nil, ErrNoAudio
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{
		file: file,
		enc:  wav.NewEncoder(file, sampleRate, bitDepth, channels, formatPCM),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
		bitDepth: bitDepth,
	}, nil
}

// Write appends whole frames of interleaved samples. The internal
// conversion buffer grows to the largest block written.
func (w *Writer) Write(samples []float32) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	if err := ToPCM(w.buf.Data, samples, w.bitDepth); err != nil {
		return err
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("failed to encode WAV data: %w", err)
	}
	w.frames += len(samples) / w.buf.Format.NumChannels
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Close finalises the WAV header and closes the file.
func (w *Writer) Close() error {
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("failed to finalise WAV file: %w", encErr)
	}
	return fileErr
}

// WriteFile writes a whole clip in one call.
func WriteFile(path string, clip *Clip) error {
	w, err := Create(path, clip.SampleRate, clip.Channels, clip.BitDepth)
	if err != nil {
		return err
	}
	if err := w.Write(clip.Samples); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
