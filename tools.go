// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sassoftware/viya-pdf-press/logger"
)

// PageCount returns the number of pages of a PDF.
func PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyInput
	}
	n, err := api.PageCount(bytes.NewReader(data), newPDFConfig())
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}

// jsNumber parses s the way a browser's Number() does for integers: blank is
// zero, anything else must be a whole decimal number.
func jsNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// leadingInt parses the leading integer of s, ignoring surrounding space and
// trailing garbage ("3a" is 3).
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// ParseRanges turns a range expression such as "1-3, 5" into page groups
// for a document of total pages. Each comma separated part becomes one group
// of 1-based page numbers. Ranges are clamped to the document, single pages
// must exist, and parts that select nothing are dropped. An open end such as
// "7-" selects nothing; an open start such as "-3" begins at page 1.
func ParseRanges(expr string, total int) [][]int {
	var groups [][]int
	for _, part := range strings.Split(expr, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		var group []int
		if strings.Contains(p, "-") {
			ends := strings.Split(p, "-")
			a, okA := jsNumber(ends[0])
			b, okB := jsNumber(ends[1])
			if okA && okB {
				for n := max(1, a); n <= min(total, b); n++ {
					group = append(group, n)
				}
			}
		} else if n, ok := jsNumber(p); ok && n >= 1 && n <= total {
			group = []int{n}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// EveryN splits total pages into consecutive groups of n pages; the last
// group may be shorter.
func EveryN(total, n int) [][]int {
	if n <= 0 {
		return nil
	}
	var groups [][]int
	for start := 1; start <= total; start += n {
		var group []int
		for p := start; p < start+n && p <= total; p++ {
			group = append(group, p)
		}
		groups = append(groups, group)
	}
	return groups
}

// ParseOrder reads a custom page order such as "3,1,2". Entries that are not
// numbers or fall outside the document are dropped.
func ParseOrder(expr string, total int) []int {
	var order []int
	for _, part := range strings.Split(expr, ",") {
		if n, ok := leadingInt(part); ok && n >= 1 && n <= total {
			order = append(order, n)
		}
	}
	return order
}

func pageSelection(pages []int) []string {
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	return sel
}

// validPages keeps the pages of group that exist in a document of total pages.
func validPages(group []int, total int) []int {
	var out []int
	for _, p := range group {
		if p >= 1 && p <= total {
			out = append(out, p)
		}
	}
	return out
}

// collect writes the given pages of data, in order, into a new PDF.
func collect(data []byte, pages []int) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(data), &buf, pageSelection(pages), newPDFConfig()); err != nil {
		return nil, fmt.Errorf("collect pages %v: %w", pages, err)
	}
	return buf.Bytes(), nil
}

// Merge concatenates the given PDFs in order into merged.pdf.
func Merge(files [][]byte) (*Download, error) {
	if len(files) == 0 {
		return nil, ErrEmptyInput
	}
	rs := make([]io.ReadSeeker, 0, len(files))
	total := 0
	for i, f := range files {
		if len(f) == 0 {
			return nil, fmt.Errorf("merge file %d: %w", i+1, ErrEmptyInput)
		}
		rs = append(rs, bytes.NewReader(f))
		total += len(f)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(rs, &buf, false, newPDFConfig()); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	logger.Debug(fmt.Sprintf("tools: merged %d files into %s", len(files), FormatBytes(buf.Len())), true)
	return newDownload("merged.pdf", buf.Bytes(), total), nil
}

// Split writes one PDF per group, named split_part<N>.pdf after the group's
// position. Pages outside the document are ignored and groups left empty
// produce no file. With no groups the whole document becomes one part.
func Split(data []byte, groups [][]int) ([]*Download, error) {
	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		groups = EveryN(total, total)
	}
	var out []*Download
	for _, group := range groups {
		pages := validPages(group, total)
		if len(pages) == 0 {
			continue
		}
		b, err := collect(data, pages)
		if err != nil {
			return nil, err
		}
		out = append(out, newDownload(fmt.Sprintf("split_part%d.pdf", len(out)+1), b, 0))
	}
	if len(out) == 0 {
		return nil, ErrInvalidPageSelection
	}
	return out, nil
}

// Reorder writes the pages of data in the given 1-based order into
// reordered_<name>. Out of range entries are dropped.
func Reorder(name string, data []byte, order []int) (*Download, error) {
	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	pages := validPages(order, total)
	if len(pages) == 0 {
		return nil, ErrInvalidPageSelection
	}
	b, err := collect(data, pages)
	if err != nil {
		return nil, err
	}
	return newDownload("reordered_"+name, b, len(data)), nil
}

// Rotate adds rotations[page] degrees to each listed page's current rotation
// and writes rotated_<name>. Pages missing from the document are ignored.
func Rotate(name string, data []byte, rotations map[int]int) (*Download, error) {
	ctx, err := readContext(data, LoadOptions{})
	if err != nil {
		return nil, err
	}
	for page, extra := range rotations {
		if page < 1 || page > ctx.PageCount {
			continue
		}
		if extra%90 != 0 {
			return nil, fmt.Errorf("rotate page %d by %d: %w", page, extra, ErrInvalidPageSelection)
		}
		pd, _, inh, err := ctx.PageDict(page, false)
		if err != nil {
			return nil, fmt.Errorf("rotate page %d: %w", page, err)
		}
		cur := 0
		if inh != nil {
			cur = inh.Rotate
		}
		pd.Update("Rotate", types.Integer(((cur+extra)%360+360)%360))
	}
	b, err := writeContext(ctx)
	if err != nil {
		return nil, err
	}
	return newDownload("rotated_"+name, b, len(data)), nil
}

// WatermarkOptions describes a text watermark stamped on every page.
type WatermarkOptions struct {
	Text string `validate:"required"`
	// Opacity in percent.
	Opacity  int    `validate:"min=5,max=100"`
	FontSize int    `validate:"min=12,max=200"`
	Color    string `validate:"hexcolor"`
	// Angle in degrees, counter clockwise.
	Angle int `validate:"min=-90,max=90"`
}

// DefaultWatermarkOptions returns the watermark tool's initial settings.
func DefaultWatermarkOptions(text string) WatermarkOptions {
	return WatermarkOptions{Text: text, Opacity: 20, FontSize: 60, Color: "#ff0000", Angle: 45}
}

// description renders opts in pdfcpu's watermark description syntax.
func (opts WatermarkOptions) description() string {
	return fmt.Sprintf("fontname:Helvetica-Bold, points:%d, rotation:%d, opacity:%.2f, fillcolor:%s, scalefactor:1 abs",
		opts.FontSize, opts.Angle, float64(opts.Opacity)/100, opts.Color)
}

// Watermark stamps opts.Text over every page and writes watermarked_<name>.
func Watermark(name string, data []byte, opts WatermarkOptions) (*Download, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("watermark options: %w", err)
	}
	wm, err := api.TextWatermark(opts.Text, opts.description(), true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	var buf bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &buf, nil, wm, newPDFConfig()); err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	return newDownload("watermarked_"+name, buf.Bytes(), len(data)), nil
}

// resaveAs loads data through lib and saves it under name.
func resaveAs(lib DocumentLibrary, name string, data []byte, opts LoadOptions) (*Download, error) {
	doc, err := lib.Load(data, opts)
	if err != nil {
		return nil, err
	}
	b, err := doc.Save(SaveOptions{})
	if err != nil {
		return nil, err
	}
	return newDownload(name, b, len(data)), nil
}

// Unlock reloads a restricted document ignoring its encryption and saves it
// without encryption as unlocked_<name>. Only files that open with an empty
// user password can be unlocked.
func Unlock(lib DocumentLibrary, name string, data []byte) (*Download, error) {
	return resaveAs(lib, "unlocked_"+name, data, LoadOptions{IgnoreEncryption: true})
}

// Grayscale re-saves the document as grayscale_<name>. Page content is not
// converted; true grayscale output needs a renderer.
func Grayscale(lib DocumentLibrary, name string, data []byte) (*Download, error) {
	return resaveAs(lib, "grayscale_"+name, data, LoadOptions{})
}
