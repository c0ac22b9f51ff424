// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

const mimeJPEG = "image/jpeg"

// RasterCodec decodes an embedded image, flattens it onto a canvas and
// encodes the canvas again.
type RasterCodec interface {
	DecodeBitmap(data []byte, mimeType string) (image.Image, error)
	DrawToCanvas(bitmap image.Image, width, height int) (image.Image, error)
	EncodeCanvas(canvas image.Image, mimeType string, quality float64) ([]byte, error)
}

// canvasCodec is the RasterCodec backed by image/jpeg and x/image/draw.
type canvasCodec struct{}

// NewRasterCodec returns the default JPEG RasterCodec.
func NewRasterCodec() RasterCodec {
	return canvasCodec{}
}

func (canvasCodec) DecodeBitmap(data []byte, mimeType string) (image.Image, error) {
	if mimeType != mimeJPEG {
		return nil, fmt.Errorf("decode %s: %w", mimeType, ErrUnsupportedMime)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	if _, ok := img.(*image.CMYK); ok {
		return nil, fmt.Errorf("decode jpeg: cmyk: %w", ErrUnsupportedColorModel)
	}
	return img, nil
}

// DrawToCanvas paints bitmap over an opaque white canvas of the given size.
// Grayscale bitmaps get a grayscale canvas; everything else is drawn as RGBA.
func (canvasCodec) DrawToCanvas(bitmap image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas %dx%d: %w", width, height, ErrImageTooSmall)
	}
	rect := image.Rect(0, 0, width, height)

	var dst draw.Image
	var white image.Image
	if _, ok := bitmap.(*image.Gray); ok {
		dst = image.NewGray(rect)
		white = image.NewUniform(color.Gray{Y: 0xff})
	} else {
		dst = image.NewRGBA(rect)
		white = image.White
	}
	draw.Draw(dst, rect, white, image.Point{}, draw.Src)

	b := bitmap.Bounds()
	if b.Dx() == width && b.Dy() == height {
		draw.Draw(dst, rect, bitmap, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, rect, bitmap, b, draw.Over, nil)
	}
	return dst, nil
}

func (canvasCodec) EncodeCanvas(canvas image.Image, mimeType string, quality float64) ([]byte, error) {
	if mimeType != mimeJPEG {
		return nil, fmt.Errorf("encode %s: %w", mimeType, ErrUnsupportedMime)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// jpegQuality maps a factor in (0, 1] onto the 1..100 scale of image/jpeg.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
