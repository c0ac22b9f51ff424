// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"math"
)

var wsBits [4]uint64 // 256 bits = 4 * 64

func init() {
	for _, b := range []byte{0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20} {
		wsBits[b>>6] |= 1 << (b & 63)
	}
}

// isWhitespace reports whether b is one of the six whitespace characters
// defined by ISO 32000-1 §7.2.2 for PDF syntax: 00, 09, 0A, 0C, 0D, 20.
// Note: This is PDF-specific whitespace, not Unicode or Go's definition.
func isWhitespace(b byte) bool {
	return (wsBits[b>>6] & (1 << (b & 63))) != 0
}

// isDelimiter reports whether b ends a PDF token without being whitespace.
func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// skipWhitespace advances j past all whitespace.
func skipWhitespace(buf []byte, j int) int {
	for j < len(buf) && isWhitespace(buf[j]) {
		j++
	}
	return j
}

// indexAll returns every offset at which tok occurs in buf, in ascending order.
// Matches may not overlap.
func indexAll(buf, tok []byte) []int {
	var indices []int
	for i := 0; ; {
		j := bytes.Index(buf[i:], tok)
		if j < 0 {
			break
		}
		indices = append(indices, i+j)
		i += j + len(tok)
	}
	return indices
}

// findLast returns the offset of the last occurrence of tok in buf that is
// followed by whitespace and ends with an EOL, or -1.
//
// Producers often put spaces, tabs or NULs between "startxref" and the
// newline, so all PDF whitespace is skipped before looking for CR or LF.
func findLast(buf []byte, tok string) int {
	bs := []byte(tok)
	indices := indexAll(buf, bs)
	for k := len(indices) - 1; k >= 0; k-- {
		i := indices[k]
		j := skipWhitespace(buf, i+len(bs))
		if endsWithEOL(buf, i+len(bs), j) {
			return i
		}
	}
	return -1
}

// endsWithEOL checks if the last skipped char is CR or LF.
func endsWithEOL(buf []byte, start, end int) bool {
	if end > start {
		last := buf[end-1]
		return last == '\n' || last == '\r'
	}
	return false
}

// readInt parses an unsigned decimal integer at buf[i:]. It returns the value,
// the offset just past the last digit, and false when no digit is present or
// the value does not fit in an int.
func readInt(buf []byte, i int) (int64, int, bool) {
	start := i
	var v int64
	overflow := false
	for i < len(buf) && buf[i] >= '0' && buf[i] <= '9' {
		d := int64(buf[i] - '0')
		if v > (math.MaxInt-d)/10 {
			overflow = true
		} else {
			v = v*10 + d
		}
		i++
	}
	if overflow {
		return 0, i, false
	}
	return v, i, i > start
}

// keyValueAt locates the value of the dictionary key name (given without the
// leading slash) within buf, matching the key exactly: "/Length" does not
// match "/Length1". It returns the offset of the first byte after the key, or -1.
// The last occurrence wins.
func keyValueAt(buf []byte, name string) int {
	key := []byte("/" + name)
	for _, i := range reverse(indexAll(buf, key)) {
		end := i + len(key)
		if end == len(buf) || isWhitespace(buf[end]) || isDelimiter(buf[end]) {
			return end
		}
	}
	return -1
}

func reverse(in []int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
