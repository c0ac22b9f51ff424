// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pdfObject is one indirect object of a synthesized document. Objects are
// numbered from 1 in the order they are passed to buildPDF.
type pdfObject struct {
	// dict is the dictionary body without the << >> brackets.
	dict string
	// stream, when non-nil, follows the dictionary. /Length is added.
	stream []byte
	// lengthRef makes /Length an indirect reference to that object.
	lengthRef int
	// raw replaces the whole object body, e.g. a bare integer.
	raw string
}

// buildPDF writes objs with a classic cross-reference table. Object 1 must
// be the catalog. trailer is appended to the trailer dictionary.
func buildPDF(trailer string, objs ...pdfObject) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n", i+1)
		switch {
		case o.raw != "":
			b.WriteString(o.raw)
		case o.stream != nil:
			length := strconv.Itoa(len(o.stream))
			if o.lengthRef > 0 {
				length = fmt.Sprintf("%d 0 R", o.lengthRef)
			}
			fmt.Fprintf(&b, "<< %s /Length %s >>\nstream\n", o.dict, length)
			b.Write(o.stream)
			b.WriteString("\nendstream")
		default:
			fmt.Fprintf(&b, "<< %s >>", o.dict)
		}
		b.WriteString("\nendobj\n")
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, trailer, xref)
	return b.Bytes()
}

// imagePDF builds a one page document that paints each image object. The
// images become objects 5 and up.
func imagePDF(images ...pdfObject) []byte {
	var names, content strings.Builder
	for i := range images {
		fmt.Fprintf(&names, "/Im%d %d 0 R ", i, 5+i)
		fmt.Fprintf(&content, "q 200 0 0 200 %d 0 cm /Im%d Do Q\n", 10+i*210, i)
	}
	objs := []pdfObject{
		{dict: "/Type /Catalog /Pages 2 0 R"},
		{dict: "/Type /Pages /Kids [3 0 R] /Count 1"},
		{dict: fmt.Sprintf("/Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << %s>> >> /Contents 4 0 R", names.String())},
		{dict: "", stream: []byte(content.String())},
	}
	return buildPDF("", append(objs, images...)...)
}

// pagesPDF builds a text document with n pages. A non-empty info becomes the
// document information dictionary.
func pagesPDF(n int, info string) []byte {
	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs := []pdfObject{
		{dict: "/Type /Catalog /Pages 2 0 R"},
		{dict: fmt.Sprintf("/Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), n)},
		{dict: "/Type /Font /Subtype /Type1 /BaseFont /Helvetica"},
	}
	for i := 0; i < n; i++ {
		objs = append(objs,
			pdfObject{dict: fmt.Sprintf("/Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R", 5+2*i)},
			pdfObject{stream: []byte(fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Page %d) Tj ET", i+1))},
		)
	}
	trailer := ""
	if info != "" {
		objs = append(objs, pdfObject{dict: info})
		trailer = fmt.Sprintf(" /Info %d 0 R", len(objs))
	}
	return buildPDF(trailer, objs...)
}

func dctImage(data []byte, w, h int) pdfObject {
	return pdfObject{
		dict:   fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", w, h),
		stream: data,
	}
}

func flateDCTImage(t *testing.T, data []byte, w, h int) pdfObject {
	return pdfObject{
		dict:   fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter [/FlateDecode /DCTDecode]", w, h),
		stream: zlibBytes(t, data),
	}
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// noisyJPEG encodes a w x h image of random pixels. Noise keeps the
// entropy-coded data large, so a lower quality always shrinks it.
func noisyJPEG(t *testing.T, w, h, quality int, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Intn(256))
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

// gradient is a smooth photographic-like test image.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) * 127 / (w + h)), A: 0xff})
		}
	}
	return img
}

var (
	startxrefRe = regexp.MustCompile(`startxref\s+(\d+)`)
	xrefEntryRe = regexp.MustCompile(`(\d{10}) (\d{5}) ([nf])`)
)

// xrefOffsets returns the in-use offsets of the last classic xref table of
// data, keyed by object number, and the startxref value.
func xrefOffsets(t *testing.T, data []byte) (map[int]int, int) {
	t.Helper()
	all := startxrefRe.FindAllSubmatch(data, -1)
	require.NotEmpty(t, all, "startxref")
	start, err := strconv.Atoi(string(all[len(all)-1][1]))
	require.NoError(t, err)
	require.Less(t, start, len(data))
	require.True(t, bytes.HasPrefix(data[start:], []byte("xref")), "startxref must point to the xref table")

	section := data[start:]
	section = section[:bytes.Index(section, []byte("trailer"))]
	lines := strings.Split(string(section), "\n")
	offsets := map[int]int{}
	obj := 0
	for _, line := range lines[1:] {
		f := strings.Fields(line)
		switch len(f) {
		case 2:
			obj, _ = strconv.Atoi(f[0])
		case 3:
			if m := xrefEntryRe.FindStringSubmatch(line); m != nil && m[3] == "n" {
				off, _ := strconv.Atoi(m[1])
				offsets[obj] = off
			}
			obj++
		}
	}
	return offsets, start
}

// requireValidXref asserts that every xref entry of data points at the
// header of the object it names.
func requireValidXref(t *testing.T, data []byte) {
	t.Helper()
	offsets, _ := xrefOffsets(t, data)
	require.NotEmpty(t, offsets)
	for obj, off := range offsets {
		want := fmt.Sprintf("%d 0 obj", obj)
		require.Less(t, off, len(data))
		require.True(t, bytes.HasPrefix(data[off:], []byte(want)), "object %d at %d", obj, off)
	}
}
