// SPDX-License-Identifier: MIT
// Package plugin describes the effect's identity as presented to hosts.
package plugin

import (
	"fmt"

	"verb/internal/params"
)

type Category int

const (
	CategoryUnknown Category = iota
	CategoryEffect
	CategorySynth
	CategoryAnalysis
)

func (c Category) String() string {
	switch c {
	case CategoryEffect:
		return "Effect"
	case CategorySynth:
		return "Synth"
	case CategoryAnalysis:
		return "Analysis"
	default:
		return "Unknown"
	}
}

// Info is the static plugin descriptor.
type Info struct {
	Name       string
	Vendor     string
	UniqueID   int32
	Version    int32
	Inputs     int32
	Outputs    int32
	Parameters int32
	Category   Category
}

// Describe returns the descriptor for this effect.
func Describe() Info {
	return Info{
		Name:       "Sammons VST2.4",
		Vendor:     "Sammons",
		UniqueID:   3141591,
		Version:    1,
		Inputs:     1,
		Outputs:    1,
		Parameters: params.NumParams,
		Category:   CategoryEffect,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s by %s (id %d, v%d, %s, %d in/%d out, %d params)",
		i.Name, i.Vendor, i.UniqueID, i.Version, i.Category, i.Inputs, i.Outputs, i.Parameters)
}
