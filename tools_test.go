// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	n, err := PageCount(data)
	require.NoError(t, err)
	return n
}

func TestParseRanges(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		total int
		want  [][]int
	}{
		{"ranges and singles", "1-3, 5", 8, [][]int{{1, 2, 3}, {5}}},
		{"clamped to document", "0-2,7-20", 8, [][]int{{1, 2}, {7, 8}}},
		{"open start", "-3", 8, [][]int{{1, 2, 3}}},
		{"open end selects nothing", "7-", 8, nil},
		{"missing page dropped", "9,2", 8, [][]int{{2}}},
		{"garbage dropped", "a,b-c,,4", 8, [][]int{{4}}},
		{"reversed range", "5-2", 8, nil},
		{"empty", "", 8, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRanges(tt.expr, tt.total))
		})
	}
}

func TestEveryN(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, EveryN(5, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, EveryN(3, 10))
	assert.Nil(t, EveryN(5, 0))
	assert.Nil(t, EveryN(0, 2))
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, ParseOrder("3, 1,x,2a,9", 3))
	assert.Empty(t, ParseOrder("", 3))
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 3, pageCount(t, pagesPDF(3, "")))

	_, err := PageCount(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = PageCount([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	a, b := pagesPDF(2, ""), pagesPDF(1, "")
	d, err := Merge([][]byte{a, b})
	require.NoError(t, err)
	assert.Equal(t, "merged.pdf", d.Name)
	assert.Equal(t, len(a)+len(b), d.Original)
	assert.Equal(t, 3, pageCount(t, d.Data))

	_, err = Merge(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = Merge([][]byte{a, nil})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestSplit(t *testing.T) {
	src := pagesPDF(4, "")
	parts, err := Split(src, [][]int{{1, 2}, {9}, {4}})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "split_part1.pdf", parts[0].Name)
	assert.Equal(t, "split_part2.pdf", parts[1].Name, "numbered by output, skipping empty groups")
	assert.Equal(t, 2, pageCount(t, parts[0].Data))
	assert.Equal(t, 1, pageCount(t, parts[1].Data))

	_, err = Split(src, [][]int{{7}, {0}})
	assert.ErrorIs(t, err, ErrInvalidPageSelection)
}

func TestSplit_EveryN(t *testing.T) {
	src := pagesPDF(5, "")
	parts, err := Split(src, EveryN(5, 2))
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, 1, pageCount(t, parts[2].Data))
}

func TestSplit_NoGroupsKeepsDocument(t *testing.T) {
	parts, err := Split(pagesPDF(3, ""), nil)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, 3, pageCount(t, parts[0].Data))
}

func TestReorder(t *testing.T) {
	src := pagesPDF(3, "")
	d, err := Reorder("doc.pdf", src, []int{3, 1, 7})
	require.NoError(t, err)
	assert.Equal(t, "reordered_doc.pdf", d.Name)
	assert.Equal(t, 2, pageCount(t, d.Data))

	_, err = Reorder("doc.pdf", src, []int{0, 4})
	assert.ErrorIs(t, err, ErrInvalidPageSelection)
}

func TestRotate(t *testing.T) {
	src := pagesPDF(2, "")
	d, err := Rotate("doc.pdf", src, map[int]int{1: 90, 5: 90})
	require.NoError(t, err)
	assert.Equal(t, "rotated_doc.pdf", d.Name)

	ctx, err := readContext(d.Data, LoadOptions{})
	require.NoError(t, err)
	_, _, inh, err := ctx.PageDict(1, false)
	require.NoError(t, err)
	assert.Equal(t, 90, inh.Rotate)
	_, _, inh, err = ctx.PageDict(2, false)
	require.NoError(t, err)
	assert.Equal(t, 0, inh.Rotate)

	again, err := Rotate("doc.pdf", d.Data, map[int]int{1: -180})
	require.NoError(t, err)
	ctx, err = readContext(again.Data, LoadOptions{})
	require.NoError(t, err)
	_, _, inh, err = ctx.PageDict(1, false)
	require.NoError(t, err)
	assert.Equal(t, 270, inh.Rotate, "rotations add up modulo 360")

	_, err = Rotate("doc.pdf", src, map[int]int{1: 45})
	assert.ErrorIs(t, err, ErrInvalidPageSelection)
}

func TestWatermarkOptions_Validation(t *testing.T) {
	v := validator.New()
	assert.NoError(t, v.Struct(DefaultWatermarkOptions("DRAFT")))

	tests := map[string]func(*WatermarkOptions){
		"empty text":         func(o *WatermarkOptions) { o.Text = "" },
		"opacity too low":    func(o *WatermarkOptions) { o.Opacity = 4 },
		"font too large":     func(o *WatermarkOptions) { o.FontSize = 201 },
		"color not hex":      func(o *WatermarkOptions) { o.Color = "red" },
		"angle out of range": func(o *WatermarkOptions) { o.Angle = 91 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := DefaultWatermarkOptions("DRAFT")
			mutate(&o)
			assert.Error(t, v.Struct(o))
		})
	}
}

func TestWatermark(t *testing.T) {
	src := pagesPDF(2, "")
	d, err := Watermark("doc.pdf", src, DefaultWatermarkOptions("CONFIDENTIAL"))
	require.NoError(t, err)
	assert.Equal(t, "watermarked_doc.pdf", d.Name)
	assert.Equal(t, 2, pageCount(t, d.Data))

	_, err = Watermark("doc.pdf", src, DefaultWatermarkOptions(""))
	assert.Error(t, err)
	_, err = Watermark("doc.pdf", nil, DefaultWatermarkOptions("x"))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestWatermarkOptions_Description(t *testing.T) {
	assert.Equal(t,
		"fontname:Helvetica-Bold, points:60, rotation:45, opacity:0.20, fillcolor:#ff0000, scalefactor:1 abs",
		DefaultWatermarkOptions("x").description())
}

func TestUnlockAndGrayscale(t *testing.T) {
	src := pagesPDF(2, "")
	lib := NewPDFLibrary()

	u, err := Unlock(lib, "doc.pdf", src)
	require.NoError(t, err)
	assert.Equal(t, "unlocked_doc.pdf", u.Name)
	assert.Equal(t, 2, pageCount(t, u.Data))

	g, err := Grayscale(lib, "doc.pdf", src)
	require.NoError(t, err)
	assert.Equal(t, "grayscale_doc.pdf", g.Name)
	assert.Equal(t, 2, pageCount(t, g.Data))

	_, err = Unlock(lib, "doc.pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestUnlock_IgnoresEncryption(t *testing.T) {
	lib := &fakeLibrary{}
	_, err := Unlock(lib, "doc.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.True(t, lib.loadOpts.IgnoreEncryption)
}
