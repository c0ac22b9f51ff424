// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/sassoftware/viya-pdf-press/logger"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// transcodeQuality is the JPEG quality for images pdfcpu cannot embed directly.
const transcodeQuality = 0.9

// importable lists the formats pdfcpu embeds as they are.
var importable = map[string]bool{"jpeg": true, "png": true, "tiff": true, "webp": true}

// ImageInput is one picture handed to ImagesToPDF.
type ImageInput struct {
	Name string
	Data []byte
}

// ImagesToPDF puts each image on its own page, sized to the image, and
// returns images.pdf. Formats other than JPEG, PNG, TIFF and WebP are decoded
// and re-encoded as JPEG first.
func ImagesToPDF(codec RasterCodec, imgs []ImageInput) (*Download, error) {
	if len(imgs) == 0 {
		return nil, ErrNoImages
	}
	if codec == nil {
		codec = NewRasterCodec()
	}
	readers := make([]io.Reader, 0, len(imgs))
	total := 0
	for _, img := range imgs {
		b, err := importableImage(codec, img)
		if err != nil {
			return nil, err
		}
		readers = append(readers, bytes.NewReader(b))
		total += len(img.Data)
	}

	imp := pdfcpu.DefaultImportConfig()
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, newPDFConfig()); err != nil {
		return nil, fmt.Errorf("import images: %w", err)
	}
	logger.Debug(fmt.Sprintf("images: %d images into %s", len(imgs), FormatBytes(buf.Len())), true)
	return newDownload("images.pdf", buf.Bytes(), total), nil
}

// importableImage returns img's bytes in a format pdfcpu can embed.
func importableImage(codec RasterCodec, img ImageInput) ([]byte, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("image %s: %w", img.Name, ErrEmptyInput)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("image %s: %v: %w", img.Name, err, ErrUnsupportedMime)
	}
	if importable[format] {
		return img.Data, nil
	}

	logger.Debug(fmt.Sprintf("images: transcoding %s (%s) to jpeg", img.Name, format))
	bitmap, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", img.Name, err)
	}
	b := bitmap.Bounds()
	canvas, err := codec.DrawToCanvas(bitmap, b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", img.Name, err)
	}
	return codec.EncodeCanvas(canvas, mimeJPEG, transcodeQuality)
}
