// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"fmt"
	"sort"

	"github.com/sassoftware/viya-pdf-press/logger"
)

// Patch replaces the bytes of Span with Replacement. Patches are only built
// when Replacement is strictly shorter than the span.
type Patch struct {
	Span        StreamSpan
	Replacement []byte
}

// edit is the general form of a patch. Width-preserving edits (Length values,
// xref offsets) and size-changing stream replacements share one fold.
type edit struct {
	start, end int
	data       []byte
}

func (e edit) delta() int {
	return (e.end - e.start) - len(e.data)
}

// Splice returns a new buffer with every patch applied. src is not modified.
// Patches are applied from the highest start offset down, so the recorded
// offsets of the patches still to be applied never move.
func Splice(src []byte, patches []Patch) []byte {
	edits := make([]edit, len(patches))
	for i, p := range patches {
		edits[i] = edit{start: p.Span.Start, end: p.Span.End, data: p.Replacement}
	}
	return applyEdits(src, edits)
}

// sortDescending orders edits by descending start and drops any edit that
// overlaps one already kept.
func sortDescending(edits []edit) []edit {
	sorted := make([]edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].start > sorted[j].start })

	out := sorted[:0]
	limit := -1
	for _, e := range sorted {
		if e.start < 0 || e.end < e.start {
			continue
		}
		if limit >= 0 && e.end > limit {
			logger.Debug(fmt.Sprintf("splice: dropping overlapping edit [%d,%d)", e.start, e.end))
			continue
		}
		out = append(out, e)
		limit = e.start
	}
	return out
}

// applyEdits folds edits into a fresh buffer: each step keeps
// prefix(before edit) + replacement + suffix(after edit, up to the previous cursor).
func applyEdits(src []byte, edits []edit) []byte {
	ordered := sortDescending(edits)
	size := len(src)
	for _, e := range ordered {
		if e.end > len(src) {
			return append([]byte(nil), src...)
		}
		size -= e.delta()
	}

	// Segments are collected back to front, then written front to back.
	segments := make([][]byte, 0, 2*len(ordered)+1)
	cursor := len(src)
	for _, e := range ordered {
		segments = append(segments, src[e.end:cursor], e.data)
		cursor = e.start
	}
	segments = append(segments, src[:cursor])

	out := make([]byte, 0, size)
	for i := len(segments) - 1; i >= 0; i-- {
		out = append(out, segments[i]...)
	}
	return out
}

// shifter maps offsets in the source buffer onto the spliced buffer.
type shifter []edit

func newShifter(edits []edit) shifter {
	s := make(shifter, 0, len(edits))
	for _, e := range edits {
		if e.delta() != 0 {
			s = append(s, e)
		}
	}
	sort.Slice(s, func(i, j int) bool { return s[i].start < s[j].start })
	return s
}

// shift returns the new position of source offset off. Offsets inside a
// replaced region map to its start.
func (s shifter) shift(off int) int {
	moved := 0
	for _, e := range s {
		if e.end <= off {
			moved += e.delta()
			continue
		}
		if e.start < off {
			return e.start - moved
		}
		break
	}
	return off - moved
}
