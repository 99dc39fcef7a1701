// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	applog "verb/internal/log"
	"verb/internal/wavio"
)

// DefaultDrainInterval is how often the recorder empties its ring.
const DefaultDrainInterval = 20 * time.Millisecond

var ErrAlreadyRecording = errors.New("already recording")

// Recorder captures interleaved wet output into a WAV file. The audio
// callback pushes into a lock-free ring; a goroutine drains the ring and
// does all file I/O, so the callback never blocks on disk.
type Recorder struct {
	ring     *Ring
	writer   *wavio.Writer
	scratch  []float32
	channels int
	interval time.Duration

	dropped atomic.Uint64
	err     error // First write error; read after the goroutine exits.

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRecorder creates the file and starts draining. The ring holds about
// one second of audio.
func NewRecorder(path string, sampleRate, channels, bitDepth int) (*Recorder, error) {
	w, err := wavio.Create(path, sampleRate, channels, bitDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %s: %w", path, err)
	}

	r := &Recorder{
		ring:     NewRing(sampleRate * channels),
		writer:   w,
		channels: channels,
		interval: DefaultDrainInterval,
		done:     make(chan struct{}),
	}
	r.scratch = make([]float32, r.ring.Cap())

	r.wg.Add(1)
	go r.run()
	applog.Infof("Recorder: writing %s (%d Hz, %d ch, %d bit)", path, sampleRate, channels, bitDepth)
	return r, nil
}

// Push queues interleaved samples from the audio callback. Only whole
// frames are queued; frames that do not fit are counted as dropped rather
// than waited for, so the stream stays channel aligned after an overflow.
func (r *Recorder) Push(samples []float32) {
	free := r.ring.Free()
	free -= free % r.channels
	whole := len(samples) - len(samples)%r.channels
	n := r.ring.Write(samples[:min(whole, free)])
	if n < len(samples) {
		r.dropped.Add(uint64(len(samples) - n))
	}
}

// Dropped returns the number of samples lost to a full ring.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.drain()
		case <-r.done:
			r.drain()
			return
		}
	}
}

// drain writes every whole frame currently queued.
func (r *Recorder) drain() {
	for {
		avail := r.ring.Len()
		avail -= avail % r.channels
		if avail == 0 {
			return
		}
		n := r.ring.Read(r.scratch[:min(avail, len(r.scratch))])
		if r.err != nil {
			continue
		}
		if err := r.writer.Write(r.scratch[:n]); err != nil {
			r.err = err
			applog.Errorf("Recorder: %v", err)
		}
	}
}

// Close stops the drain goroutine, flushes what is queued and finalises the
// file. It is safe to call more than once.
func (r *Recorder) Close() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		closeErr := r.writer.Close()
		if dropped := r.Dropped(); dropped > 0 {
			applog.Warnf("Recorder: %d samples dropped", dropped)
		}
		err = errors.Join(r.err, closeErr)
	})
	return err
}

// Frames returns the number of frames written to disk so far. Only
// meaningful after Close.
func (r *Recorder) Frames() int {
	return r.writer.Frames()
}
