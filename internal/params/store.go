// SPDX-License-Identifier: MIT
/*
Package params holds the effect's automatable parameter table.

Thread Safety:
- Every field is an independent atomic float32 stored as its bit pattern
- One audio goroutine reads while one control goroutine (host automation,
  UI, websocket) writes; neither ever blocks the other
- No ordering is promised across fields; a reader may see a new pre-gain
  together with an old post-gain
*/
package params

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Parameter indices as exposed to hosts and control surfaces.
const (
	PreGain  int32 = 0
	PostGain int32 = 1

	NumParams int32 = 2
)

// Defaults applied by NewStore.
const (
	DefaultPreGain    float32 = 1.0
	DefaultPostGain   float32 = 1.0
	DefaultSampleRate float32 = 44100.0
)

var names = [NumParams]string{
	PreGain:  "Pre Gain",
	PostGain: "Post Gain",
}

// atomicFloat32 is a float32 that can be loaded and stored without tearing.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (f *atomicFloat32) Load() float32 {
	return math.Float32frombits(f.bits.Load())
}

func (f *atomicFloat32) Store(v float32) {
	f.bits.Store(math.Float32bits(v))
}

// Store is the shared parameter table. It is created once and shared by
// pointer between the audio processor and any control collaborator.
type Store struct {
	preGain    atomicFloat32
	postGain   atomicFloat32
	sampleRate atomicFloat32
}

// NewStore returns a Store holding the default values.
func NewStore() *Store {
	s := &Store{}
	s.preGain.Store(DefaultPreGain)
	s.postGain.Store(DefaultPostGain)
	s.sampleRate.Store(DefaultSampleRate)
	return s
}

// Count returns the number of indexed parameters.
func (s *Store) Count() int32 {
	return NumParams
}

// Get returns the linear value of a parameter, or 0 for an unknown index.
func (s *Store) Get(index int32) float32 {
	switch index {
	case PreGain:
		return s.preGain.Load()
	case PostGain:
		return s.postGain.Load()
	default:
		return 0
	}
}

// Set writes a parameter. Unknown indices are ignored.
func (s *Store) Set(index int32, value float32) {
	switch index {
	case PreGain:
		s.preGain.Store(value)
	case PostGain:
		s.postGain.Store(value)
	}
}

// Name returns the display name of a parameter, or "" for an unknown index.
func (s *Store) Name(index int32) string {
	if index < 0 || index >= NumParams {
		return ""
	}
	return names[index]
}

// Text renders a parameter as a signed percentage where 0.0 shows as -100,
// 0.5 as 0 and 1.0 as 100. Unknown indices render as "".
func (s *Store) Text(index int32) string {
	if index < 0 || index >= NumParams {
		return ""
	}
	return fmt.Sprintf("%.0f", 100*(s.Get(index)-0.5)*2)
}

// PreGain and PostGain are the typed accessors used by the audio path.
func (s *Store) PreGain() float32  { return s.preGain.Load() }
func (s *Store) PostGain() float32 { return s.postGain.Load() }

// SampleRate returns the rate the effect was (or will be) built for.
func (s *Store) SampleRate() float32 {
	return s.sampleRate.Load()
}

// SetSampleRate records the host sample rate. Engines already built keep
// the rate they were constructed with.
func (s *Store) SetSampleRate(rate float32) {
	s.sampleRate.Store(rate)
}

// Param is one row of the parameter table.
type Param struct {
	Index int32   `json:"index"`
	Name  string  `json:"name"`
	Value float32 `json:"value"`
	Text  string  `json:"text"`
}

// Snapshot returns the whole table. It allocates and is meant for control
// surfaces, never the audio path.
func (s *Store) Snapshot() []Param {
	table := make([]Param, 0, NumParams)
	for i := int32(0); i < NumParams; i++ {
		table = append(table, Param{
			Index: i,
			Name:  s.Name(i),
			Value: s.Get(i),
			Text:  s.Text(i),
		})
	}
	return table
}
