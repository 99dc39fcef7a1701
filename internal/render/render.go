// SPDX-License-Identifier: MIT
/*
Package render runs the effect offline over WAV files.

The input is decoded in full, processed block by block with the same
channel-major order the live stream uses, followed by an optional silent
tail so the reverb can ring out, and encoded back to PCM.
*/
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	applog "verb/internal/log"
	"verb/internal/params"
	"verb/internal/processor"
	"verb/internal/wavio"
	"verb/pkg/signal"
)

// DefaultBlockFrames is the number of frames processed between
// cancellation checks.
const DefaultBlockFrames = 4096

var ErrNegativeTail = errors.New("tail cannot be negative")

// Options controls an offline render.
type Options struct {
	Tail        time.Duration // Silence appended after the input.
	BitDepth    int           // Output depth; 0 keeps the input depth.
	ChannelMode processor.ChannelMode
	PreGain     float32
	PostGain    float32
	BlockFrames int // 0 selects DefaultBlockFrames.
}

// DefaultOptions returns unity gains, no tail and the shared channel mode.
func DefaultOptions() Options {
	return Options{
		ChannelMode: processor.Shared,
		PreGain:     params.DefaultPreGain,
		PostGain:    params.DefaultPostGain,
		BlockFrames: DefaultBlockFrames,
	}
}

// Stats summarises a finished render.
type Stats struct {
	SampleRate int
	Channels   int
	BitDepth   int
	FramesIn   int
	FramesOut  int
	Peak       float32
	Clipped    int // Samples saturated by PCM quantisation.
}

func (s Stats) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit: %d frames in, %d frames out, peak %.3f, %d clipped",
		s.SampleRate, s.Channels, s.BitDepth, s.FramesIn, s.FramesOut, s.Peak, s.Clipped)
}

// Render renders inPath to outPath.
func Render(ctx context.Context, inPath, outPath string, opts Options) (Stats, error) {
	clip, err := wavio.ReadFile(inPath)
	if err != nil {
		return Stats{}, err
	}
	applog.Debugf("Render: %s is %d Hz, %d ch, %d bit, %d frames",
		inPath, clip.SampleRate, clip.Channels, clip.BitDepth, clip.Frames())

	out, stats, err := Clip(ctx, clip, opts)
	if err != nil {
		return stats, err
	}
	if err := wavio.WriteFile(outPath, out); err != nil {
		return stats, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	applog.Infof("Render: %s -> %s (%s)", inPath, outPath, stats)
	return stats, nil
}

func newStore(sampleRate int, opts Options) *params.Store {
	store := params.NewStore()
	store.SetSampleRate(float32(sampleRate))
	store.Set(params.PreGain, opts.PreGain)
	store.Set(params.PostGain, opts.PostGain)
	return store
}

// Clip renders an in-memory clip and returns the processed copy.
func Clip(ctx context.Context, in *wavio.Clip, opts Options) (*wavio.Clip, Stats, error) {
	if opts.Tail < 0 {
		return nil, Stats{}, ErrNegativeTail
	}
	if in.Channels < 1 {
		return nil, Stats{}, wavio.ErrNoAudio
	}
	blockFrames := opts.BlockFrames
	if blockFrames <= 0 {
		blockFrames = DefaultBlockFrames
	}
	bitDepth := opts.BitDepth
	if bitDepth == 0 {
		bitDepth = in.BitDepth
	}

	proc, err := processor.New(newStore(in.SampleRate, opts), in.Channels, opts.ChannelMode)
	if err != nil {
		return nil, Stats{}, err
	}

	framesIn := in.Frames()
	tailFrames := int(opts.Tail.Seconds() * float64(in.SampleRate))
	framesOut := framesIn + tailFrames

	out := &wavio.Clip{
		SampleRate: in.SampleRate,
		Channels:   in.Channels,
		BitDepth:   bitDepth,
		Samples:    make([]float32, framesOut*in.Channels),
	}
	copy(out.Samples, in.Samples[:framesIn*in.Channels])

	block := make([][]float32, in.Channels)
	for ch := range block {
		block[ch] = make([]float32, blockFrames)
	}

	for start := 0; start < framesOut; start += blockFrames {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		frames := min(blockFrames, framesOut-start)
		span := out.Samples[start*in.Channels : (start+frames)*in.Channels]
		for ch := range block {
			block[ch] = block[ch][:frames]
		}
		signal.Deinterleave(block, span)
		proc.Process(block, block)
		signal.Interleave(span, block, frames)
	}

	stats := Stats{
		SampleRate: out.SampleRate,
		Channels:   out.Channels,
		BitDepth:   out.BitDepth,
		FramesIn:   framesIn,
		FramesOut:  framesOut,
	}
	stats.Peak, _ = signal.Peak(out.Samples)
	for _, s := range out.Samples {
		if s > 1 || s < -1 {
			stats.Clipped++
		}
	}
	return out, stats, nil
}
