// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"fmt"
	"strings"
)

// Preset names one of the three quality tiers offered to users.
type Preset string

const (
	Maximum  Preset = "maximum"
	Balanced Preset = "balanced"
	Gentle   Preset = "gentle"
)

var presetFactors = map[Preset]float64{
	Maximum:  0.38,
	Balanced: 0.60,
	Gentle:   0.82,
}

// Factor returns the JPEG quality factor of p, or the balanced factor for an
// unknown preset.
func (p Preset) Factor() float64 {
	if f, ok := presetFactors[p]; ok {
		return f
	}
	return presetFactors[Balanced]
}

// ParsePreset maps a user supplied name onto a Preset.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := presetFactors[p]; !ok {
		return "", fmt.Errorf("unknown quality preset %q (want maximum, balanced or gentle)", s)
	}
	return p, nil
}
