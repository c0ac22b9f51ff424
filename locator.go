// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"fmt"

	"github.com/sassoftware/viya-pdf-press/logger"
)

var (
	streamKeyword    = []byte("stream")
	endstreamKeyword = []byte("endstream")
	objKeyword       = []byte("obj")
)

// StreamSpan is the byte range [Start, End) of one stream's content, exclusive
// of the stream/endstream keywords and the EOL markers around them.
type StreamSpan struct {
	Start int
	End   int
}

// Len returns the number of bytes in the span.
func (s StreamSpan) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and o share at least one byte.
func (s StreamSpan) Overlaps(o StreamSpan) bool {
	return s.Start < o.End && o.Start < s.End
}

// StreamClass tells whether a stream is an image and how it is encoded.
type StreamClass int

const (
	NotImage StreamClass = iota
	ImageDCT
	ImageFlate
	ImageOther
)

func (c StreamClass) String() string {
	switch c {
	case NotImage:
		return "not-image"
	case ImageDCT:
		return "image-dct"
	case ImageFlate:
		return "image-flate"
	case ImageOther:
		return "image-other"
	}
	return fmt.Sprintf("StreamClass(%d)", int(c))
}

// ClassifiedSpan is a located image stream.
type ClassifiedSpan struct {
	Span  StreamSpan
	Class StreamClass
	// Header is the part of the object's dictionary text that was inspected,
	// ending at the stream keyword.
	Header StreamSpan
}

// LocateStreams scans buf for stream/endstream pairs and returns the ones that
// look like image XObjects at least minSize bytes long, in file order.
// window bounds how many bytes before the stream keyword are inspected for the
// object dictionary.
//
// This is a token search, not a parser: keywords inside strings or comments
// are matched too. A stream without a closing endstream ends the scan.
func LocateStreams(buf []byte, window, minSize int) []ClassifiedSpan {
	ends := indexAll(buf, endstreamKeyword)
	var out []ClassifiedSpan
	cursor := 0   // next unconsumed entry in ends
	consumed := 0 // first byte after the last matched endstream
	for _, kw := range indexAll(buf, streamKeyword) {
		if kw >= 3 && bytes.Equal(buf[kw-3:kw], []byte("end")) {
			continue
		}
		if kw < consumed {
			continue
		}
		start := kw + len(streamKeyword)
		if start < len(buf) && buf[start] == '\r' {
			start++
		}
		if start < len(buf) && buf[start] == '\n' {
			start++
		}
		for cursor < len(ends) && ends[cursor] < start {
			cursor++
		}
		if cursor == len(ends) {
			logger.Debug(fmt.Sprintf("locator: no endstream after offset %d, stopping", kw), true)
			break
		}
		e := ends[cursor]
		cursor++
		consumed = e + len(endstreamKeyword)

		header := headerSpan(buf, kw, window)
		hdr := buf[header.Start:header.End]
		class := classify(hdr)
		if class == NotImage {
			continue
		}
		span := StreamSpan{Start: start, End: contentEnd(buf, hdr, start, e)}
		if span.Len() < minSize {
			logger.Debug(fmt.Sprintf("locator: image stream at %d too small (%d bytes)", start, span.Len()))
			continue
		}
		out = append(out, ClassifiedSpan{Span: span, Class: class, Header: header})
	}
	logger.Debug(fmt.Sprintf("locator: %d image streams in %d bytes", len(out), len(buf)), true)
	return out
}

// headerSpan returns up to window bytes before the stream keyword at kw, cut
// after the last "obj" keyword so a preceding object's dictionary is excluded.
func headerSpan(buf []byte, kw, window int) StreamSpan {
	from := kw - window
	if from < 0 {
		from = 0
	}
	hdr := buf[from:kw]
	for _, i := range reverse(indexAll(hdr, objKeyword)) {
		before := i == 0 || isWhitespace(hdr[i-1])
		after := i+len(objKeyword) == len(hdr) || isWhitespace(hdr[i+len(objKeyword)]) || isDelimiter(hdr[i+len(objKeyword)])
		if before && after {
			return StreamSpan{Start: from + i + len(objKeyword), End: kw}
		}
	}
	return StreamSpan{Start: from, End: kw}
}

// contentEnd finds where the stream data ends. A direct /Length is trusted when
// only whitespace separates the data it describes from endstream; otherwise
// trailing whitespace before endstream is trimmed.
func contentEnd(buf, hdr []byte, start, endKeyword int) int {
	if n, ok := directLength(hdr); ok && n >= 0 && n <= int64(endKeyword-start) {
		end := start + int(n)
		if len(bytes.TrimLeft(buf[end:endKeyword], "\x00\t\n\f\r ")) == 0 {
			return end
		}
	}
	end := endKeyword
	for end > start && (buf[end-1] == '\n' || buf[end-1] == '\r' || buf[end-1] == ' ' || buf[end-1] == '\t') {
		end--
	}
	return end
}

// compactLower lower-cases hdr and removes all PDF whitespace so that
// "/Subtype /Image" and "/Subtype/Image" compare equal.
func compactLower(hdr []byte) []byte {
	out := make([]byte, 0, len(hdr))
	for _, b := range hdr {
		if isWhitespace(b) {
			continue
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out = append(out, b)
	}
	return out
}

func classify(hdr []byte) StreamClass {
	c := compactLower(hdr)
	has := func(s string) bool { return bytes.Contains(c, []byte(s)) }

	isImage := has("/subtype/image") || (has("/width") && has("/height") && has("/colorspace"))
	if !isImage {
		return NotImage
	}
	switch {
	case has("/flatedecode"):
		return ImageFlate
	case has("/dctdecode"):
		return ImageDCT
	default:
		return ImageOther
	}
}
