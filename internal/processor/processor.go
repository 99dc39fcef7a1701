// SPDX-License-Identifier: MIT
/*
Package processor is the per-sample effect pipeline: pre-gain, reverb,
post-gain.

Gains are read from the shared params.Store on every sample, so control
changes take effect on the next sample without any locking. The reverb
state is owned here and touched only by the audio goroutine.
*/
package processor

import (
	"errors"
	"fmt"

	"verb/internal/params"
	"verb/internal/reverb"
)

// ChannelMode selects how channels map onto reverb engines.
type ChannelMode string

const (
	// Shared runs every channel through one engine, channel after channel,
	// so later channels hear the tail seeded by earlier ones.
	Shared ChannelMode = "shared"
	// Independent gives each channel its own engine.
	Independent ChannelMode = "independent"
)

// ParseChannelMode validates a mode name. The empty string selects Shared.
func ParseChannelMode(s string) (ChannelMode, error) {
	switch ChannelMode(s) {
	case "", Shared:
		return Shared, nil
	case Independent:
		return Independent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrChannelMode, s)
	}
}

var (
	ErrChannelMode = errors.New("unknown channel mode")
	ErrNoChannels  = errors.New("processor needs at least one channel")
	ErrNilStore    = errors.New("parameter store cannot be nil")
)

// Processor applies the effect to any number of channels.
type Processor struct {
	params   *params.Store
	engines  []*reverb.Engine // one per channel, aliased in Shared mode
	mode     ChannelMode
	channels int
}

// New builds a processor for the given channel count. The reverb is sized
// from the store's sample rate.
func New(store *params.Store, channels int, mode ChannelMode) (*Processor, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoChannels, channels)
	}
	mode, err := ParseChannelMode(string(mode))
	if err != nil {
		return nil, err
	}

	sampleRate := float64(store.SampleRate())
	engines := make([]*reverb.Engine, channels)
	for ch := range engines {
		if mode == Shared && ch > 0 {
			engines[ch] = engines[0]
			continue
		}
		e, err := reverb.NewEngine(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to build reverb for channel %d: %w", ch, err)
		}
		engines[ch] = e
	}

	return &Processor{
		params:   store,
		engines:  engines,
		mode:     mode,
		channels: channels,
	}, nil
}

// ProcessSample transforms one sample of one channel. Channels outside the
// configured range deliberately use the first channel's engine, so a host
// that opens more channels than configured never panics in the callback.
// Callers that need per-channel state must stay within Channels().
func (p *Processor) ProcessSample(channel int, in float32) float32 {
	e := p.engines[0]
	if channel > 0 && channel < len(p.engines) {
		e = p.engines[channel]
	}
	wet := e.Process(p.params.PreGain() * in)
	return p.params.PostGain() * wet
}

// Process transforms non-interleaved buffers channel by channel, in sample
// order. out may alias in. Extra output channels without a matching input
// are silenced.
//
// Hot path: no allocations, no locks.
func (p *Processor) Process(in, out [][]float32) {
	for ch := range out {
		dst := out[ch]
		if ch >= len(in) {
			clear(dst)
			continue
		}
		src := in[ch]
		n := min(len(src), len(dst))
		for i := 0; i < n; i++ {
			dst[i] = p.ProcessSample(ch, src[i])
		}
		clear(dst[n:])
	}
}

// ProcessInterleaved transforms an interleaved buffer in place. Samples are
// visited frame by frame, which only differs from Process in Shared mode.
func (p *Processor) ProcessInterleaved(buf []float32, channels int) {
	if channels < 1 {
		return
	}
	for i := range buf {
		buf[i] = p.ProcessSample(i%channels, buf[i])
	}
}

// Reset silences every reverb tail.
func (p *Processor) Reset() {
	for ch, e := range p.engines {
		if p.mode == Shared && ch > 0 {
			break
		}
		e.Reset()
	}
}

// Channels returns the configured channel count.
func (p *Processor) Channels() int {
	return p.channels
}

// Mode returns the channel mode.
func (p *Processor) Mode() ChannelMode {
	return p.mode
}

// Engine returns the reverb used by a channel.
func (p *Processor) Engine(channel int) *reverb.Engine {
	if channel < 0 || channel >= len(p.engines) {
		return p.engines[0]
	}
	return p.engines[channel]
}

// Params returns the shared parameter store.
func (p *Processor) Params() *params.Store {
	return p.params
}
