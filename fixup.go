// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/sassoftware/viya-pdf-press/logger"
)

// The fix-ups in this file keep a spliced buffer loadable by engines that
// trust the cross-reference table. Every edit they produce has the same width
// as the bytes it replaces, so only stream patches move offsets.

// lengthRef describes the /Length entry of a stream dictionary.
type lengthRef struct {
	value int64
	// start and end delimit the integer in the header for a direct length.
	start, end int
	indirect   bool
	id, gen    int64
}

// parseLength reads the /Length entry out of a header. ok is false when the
// key is missing or its value is neither an integer nor "N G R".
func parseLength(hdr []byte) (lengthRef, bool) {
	i := keyValueAt(hdr, "Length")
	if i < 0 {
		return lengthRef{}, false
	}
	j := skipWhitespace(hdr, i)
	v, k, ok := readInt(hdr, j)
	if !ok {
		return lengthRef{}, false
	}
	ref := lengthRef{value: v, start: j, end: k}

	m := skipWhitespace(hdr, k)
	if m == k {
		return ref, true
	}
	gen, n, ok := readInt(hdr, m)
	if !ok {
		return ref, true
	}
	r := skipWhitespace(hdr, n)
	if r > n && r < len(hdr) && hdr[r] == 'R' && (r+1 == len(hdr) || isWhitespace(hdr[r+1]) || isDelimiter(hdr[r+1])) {
		return lengthRef{indirect: true, id: v, gen: gen}, true
	}
	return ref, true
}

// directLength returns the value of a direct integer /Length in hdr.
func directLength(hdr []byte) (int64, bool) {
	ref, ok := parseLength(hdr)
	if !ok || ref.indirect {
		return 0, false
	}
	return ref.value, true
}

// spacePadded renders v left-aligned in width bytes, or fails if v needs more.
func spacePadded(v int64, width int) ([]byte, bool) {
	s := strconv.FormatInt(v, 10)
	if len(s) > width {
		return nil, false
	}
	return append([]byte(s), bytes.Repeat([]byte{' '}, width-len(s))...), true
}

// zeroPadded renders v right-aligned with leading zeros in width bytes.
func zeroPadded(v int64, width int) ([]byte, bool) {
	s := fmt.Sprintf("%0*d", width, v)
	if len(s) > width {
		return nil, false
	}
	return []byte(s), true
}

// numberEdit rewrites the integer at buf[start:end] as v, space padded.
func numberEdit(start, end int, v int64) (edit, bool) {
	data, ok := spacePadded(v, end-start)
	if !ok {
		return edit{}, false
	}
	return edit{start: start, end: end, data: data}, true
}

// lengthEdit rewrites the /Length of the stream behind cs so that it reads n.
func lengthEdit(buf []byte, cs ClassifiedSpan, n int) (edit, bool) {
	hdr := buf[cs.Header.Start:cs.Header.End]
	ref, ok := parseLength(hdr)
	if !ok {
		logger.Debug(fmt.Sprintf("fixup: stream at %d has no usable /Length", cs.Span.Start))
		return edit{}, false
	}
	if !ref.indirect {
		return numberEdit(cs.Header.Start+ref.start, cs.Header.Start+ref.end, int64(n))
	}

	at := findObject(buf, ref.id, ref.gen)
	if at < 0 {
		logger.Debug(fmt.Sprintf("fixup: length object %d %d not found in plain text", ref.id, ref.gen))
		return edit{}, false
	}
	j := skipWhitespace(buf, at)
	_, k, ok := readInt(buf, j)
	if !ok {
		return edit{}, false
	}
	return numberEdit(j, k, int64(n))
}

// findObject returns the offset just past "<id> <gen> obj" for the last
// definition of the object in buf, or -1.
func findObject(buf []byte, id, gen int64) int {
	re := regexp.MustCompile(fmt.Sprintf(`\b%d\s+%d\s+obj\b`, id, gen))
	locs := re.FindAllIndex(buf, -1)
	if len(locs) == 0 {
		return -1
	}
	return locs[len(locs)-1][1]
}

const startxrefChunk = 1024

// xrefEdits rewrites the byte offsets recorded in classic cross-reference
// tables, their trailers' /Prev and /XRefStm, and the final startxref so they
// match the buffer after the size-changing edits in sh are applied.
// A file whose last section is a cross-reference stream yields no edits.
func xrefEdits(buf []byte, sh shifter) []edit {
	base := len(buf) - startxrefChunk
	if base < 0 {
		base = 0
	}
	i := findLast(buf[base:], "startxref")
	if i < 0 {
		logger.Debug("fixup: missing final startxref")
		return nil
	}
	j := skipWhitespace(buf, base+i+len("startxref"))
	startxref, k, ok := readInt(buf, j)
	if !ok || startxref < 0 || startxref >= int64(len(buf)) {
		logger.Debug("fixup: startxref not followed by a usable offset")
		return nil
	}
	if !isXrefTable(buf, int(startxref)) {
		logger.Debug(fmt.Sprintf("fixup: startxref=%d is a cross-reference stream, offsets left alone", startxref), true)
		return nil
	}

	var edits []edit
	if e, ok := numberEdit(j, k, int64(sh.shift(int(startxref)))); ok {
		edits = append(edits, e)
	}

	visited := map[int64]bool{}
	for off := startxref; off >= 0 && off < int64(len(buf)) && !visited[off]; {
		visited[off] = true
		if !isXrefTable(buf, int(off)) {
			logger.Debug(fmt.Sprintf("fixup: Prev=%d does not point to xref", off))
			break
		}
		section, trailer, ok := xrefSectionEdits(buf, int(off), sh)
		edits = append(edits, section...)
		if !ok {
			break
		}
		prev := int64(-1)
		for _, key := range []string{"Prev", "XRefStm"} {
			at := keyValueAt(buf[trailer.Start:trailer.End], key)
			if at < 0 {
				continue
			}
			p := skipWhitespace(buf, trailer.Start+at)
			v, q, ok := readInt(buf, p)
			if !ok {
				continue
			}
			if e, ok := numberEdit(p, q, int64(sh.shift(int(v)))); ok {
				edits = append(edits, e)
			}
			if key == "Prev" {
				prev = v
			}
		}
		off = prev
	}
	logger.Debug(fmt.Sprintf("fixup: %d xref edits", len(edits)), true)
	return edits
}

func isXrefTable(buf []byte, off int) bool {
	if off < 0 || off >= len(buf) {
		return false
	}
	p := skipWhitespace(buf, off)
	return bytes.HasPrefix(buf[p:], []byte("xref"))
}

// xrefSectionEdits walks one "xref ... trailer" section starting at off and
// returns edits for every in-use entry plus the span of its trailer text.
func xrefSectionEdits(buf []byte, off int, sh shifter) ([]edit, StreamSpan, bool) {
	var edits []edit
	p := skipWhitespace(buf, off) + len("xref")
	for {
		p = skipWhitespace(buf, p)
		if bytes.HasPrefix(buf[p:], []byte("trailer")) {
			break
		}
		first, q, ok1 := readInt(buf, p)
		count, r, ok2 := readInt(buf, skipWhitespace(buf, q))
		if !ok1 || !ok2 {
			logger.Debug(fmt.Sprintf("fixup: malformed xref subsection header at %d", p))
			return edits, StreamSpan{}, false
		}
		p = r
		for n := int64(0); n < count; n++ {
			a := skipWhitespace(buf, p)
			v, b, okOff := readInt(buf, a)
			g := skipWhitespace(buf, b)
			_, h, okGen := readInt(buf, g)
			t := skipWhitespace(buf, h)
			if !okOff || !okGen || t >= len(buf) {
				logger.Debug(fmt.Sprintf("fixup: malformed xref entry %d", first+n))
				return edits, StreamSpan{}, false
			}
			switch buf[t] {
			case 'n':
				if data, ok := zeroPadded(int64(sh.shift(int(v))), b-a); ok {
					edits = append(edits, edit{start: a, end: b, data: data})
				}
			case 'f':
			default:
				logger.Debug(fmt.Sprintf("fixup: unexpected xref entry type %q", buf[t]))
				return edits, StreamSpan{}, false
			}
			p = t + 1
		}
	}

	start := p + len("trailer")
	end := len(buf)
	if i := bytes.Index(buf[start:], []byte("startxref")); i >= 0 {
		end = start + i
	}
	if j := bytes.Index(buf[start:end], []byte("xref")); j >= 0 {
		end = start + j
	}
	return edits, StreamSpan{Start: start, End: end}, true
}

// spliceWithFixups applies the stream patches together with the /Length and
// cross-reference edits they imply.
func spliceWithFixups(src []byte, accepted []ClassifiedSpan, patches []Patch) []byte {
	edits := make([]edit, 0, 2*len(patches))
	for i, p := range patches {
		edits = append(edits, edit{start: p.Span.Start, end: p.Span.End, data: p.Replacement})
		if e, ok := lengthEdit(src, accepted[i], len(p.Replacement)); ok {
			edits = append(edits, e)
		}
	}
	sh := newShifter(edits)
	edits = append(edits, xrefEdits(src, sh)...)
	return applyEdits(src, edits)
}
