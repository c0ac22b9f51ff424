// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// maxInflated caps how much a single Flate stream may expand to.
const maxInflated = 256 << 20

var errNoGain = errors.New("re-encoded image is not smaller")

// wrapFunc encodes replacement JPEG bytes the way the original stream was
// encoded, so the stream's /Filter stays valid.
type wrapFunc func(jpegBytes []byte) ([]byte, error)

func unwrapped(b []byte) ([]byte, error) { return b, nil }

// reencoder turns the raw bytes of one image stream into a smaller stream, or
// reports why it could not.
type reencoder struct {
	codec   RasterCodec
	minDim  int
	quality float64
}

// jpegPayload returns the JPEG carried by a stream of the given class.
func jpegPayload(raw []byte, class StreamClass) ([]byte, wrapFunc, error) {
	switch class {
	case ImageDCT:
		return raw, unwrapped, nil
	case ImageFlate:
		data, wrap, err := inflate(raw)
		if err != nil {
			return nil, nil, err
		}
		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
			return nil, nil, ErrNotJPEG
		}
		return data, wrap, nil
	}
	return nil, nil, fmt.Errorf("%s stream: %w", class, ErrNotJPEG)
}

// inflate decodes zlib framed data, falling back to raw deflate. The returned
// wrapFunc deflates with the framing that worked.
func inflate(raw []byte) ([]byte, wrapFunc, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		data, err := io.ReadAll(io.LimitReader(zr, maxInflated))
		zr.Close()
		if err == nil {
			return data, deflateZlib, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	data, err := io.ReadAll(io.LimitReader(fr, maxInflated))
	if err != nil {
		return nil, nil, fmt.Errorf("inflate: %w", err)
	}
	return data, deflateRaw, nil
}

func deflateZlib(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deflateRaw(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(b); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// reencode returns replacement stream bytes strictly shorter than raw.
func (re reencoder) reencode(raw []byte, class StreamClass) ([]byte, error) {
	payload, wrap, err := jpegPayload(raw, class)
	if err != nil {
		return nil, err
	}
	bitmap, err := re.codec.DecodeBitmap(payload, mimeJPEG)
	if err != nil {
		return nil, err
	}
	b := bitmap.Bounds()
	if b.Dx() < re.minDim || b.Dy() < re.minDim {
		return nil, fmt.Errorf("%dx%d: %w", b.Dx(), b.Dy(), ErrImageTooSmall)
	}
	canvas, err := re.codec.DrawToCanvas(bitmap, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	encoded, err := re.codec.EncodeCanvas(canvas, mimeJPEG, re.quality)
	if err != nil {
		return nil, err
	}
	out, err := wrap(encoded)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if len(out) >= len(raw) {
		return nil, fmt.Errorf("%d >= %d bytes: %w", len(out), len(raw), errNoGain)
	}
	return out, nil
}
