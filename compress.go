// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"context"
	"fmt"

	"github.com/sassoftware/viya-pdf-press/logger"
)

// Progress milestones of a Recompress run, in percent.
const (
	progressScanned = 70
	progressSpliced = 85
	progressDone    = 100
)

// ProgressFunc receives a non-decreasing completion percentage.
type ProgressFunc func(percent int)

// CompressionResult is the output of one Recompress run.
type CompressionResult struct {
	Bytes []byte
	// ImagesFound counts image streams large enough to be considered.
	ImagesFound int
	// ImagesCompressed counts the streams that were replaced by smaller bytes.
	ImagesCompressed int
}

// Recompressor re-encodes the JPEG images embedded in a PDF at a lower
// quality. The result is never larger than its input.
type Recompressor struct {
	lib   DocumentLibrary
	codec RasterCodec
	cfg   *Config
}

// NewRecompressor wires a Recompressor. lib may be nil, in which case the
// spliced buffer is returned without a library re-save. A nil cfg means
// NewDefaultConfig().
func NewRecompressor(lib DocumentLibrary, codec RasterCodec, cfg *Config) *Recompressor {
	if codec == nil {
		codec = NewRasterCodec()
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	return &Recompressor{lib: lib, codec: codec, cfg: cfg}
}

// Recompress scans src for image streams, re-encodes every JPEG it can at
// quality (0 < quality <= 1), splices the smaller streams back and re-saves the
// document. Per-image and library failures degrade the result; only empty
// input, a bad quality or a cancelled ctx return an error.
func (r *Recompressor) Recompress(ctx context.Context, src []byte, quality float64, progress ProgressFunc) (*CompressionResult, error) {
	if len(src) == 0 {
		return nil, ErrEmptyInput
	}
	if quality <= 0 || quality > 1 {
		return nil, fmt.Errorf("press: quality %v outside (0, 1]", quality)
	}
	report := monotonic(progress)
	report(0)

	spans := LocateStreams(src, r.cfg.DictWindow, r.cfg.MinStreamSize)
	re := reencoder{codec: r.codec, minDim: r.cfg.MinImageDimension, quality: quality}

	res := &CompressionResult{}
	var accepted []ClassifiedSpan
	var patches []Patch
	for i, cs := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.ImagesFound++
		raw := src[cs.Span.Start:cs.Span.End]
		out, err := re.reencode(raw, cs.Class)
		if err != nil {
			logger.Debug(fmt.Sprintf("recompress: skipping %s stream at %d: %v", cs.Class, cs.Span.Start, err))
		} else {
			res.ImagesCompressed++
			accepted = append(accepted, cs)
			patches = append(patches, Patch{Span: cs.Span, Replacement: out})
			logger.Debug(fmt.Sprintf("recompress: %s stream at %d: %d -> %d bytes", cs.Class, cs.Span.Start, len(raw), len(out)))
		}
		report(progressScanned * (i + 1) / len(spans))
	}
	report(progressScanned)

	spliced := src
	if len(patches) > 0 {
		spliced = spliceWithFixups(src, accepted, patches)
	}
	report(progressSpliced)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var saved []byte
	err := errNoLibrary
	if r.lib != nil {
		saved, err = r.resave(spliced)
	}
	report(progressDone)

	switch {
	case err == nil && len(saved) <= len(src):
		res.Bytes = saved
	case len(spliced) <= len(src):
		if err != nil && r.lib != nil {
			logger.Error(fmt.Sprintf("recompress: library re-save failed, keeping spliced buffer: %v", err))
		}
		res.Bytes = spliced
	default:
		res.Bytes = src
	}
	logger.Debug(fmt.Sprintf("recompress: found=%d compressed=%d size %d -> %d",
		res.ImagesFound, res.ImagesCompressed, len(src), len(res.Bytes)), true)
	return res, nil
}

// resave runs buf through the document library: metadata is cleared, the
// producer and creator are stamped and object streams are enabled.
func (r *Recompressor) resave(buf []byte) (out []byte, err error) {
	if r.lib == nil {
		return nil, errNoLibrary
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("press: document library panic: %v", p)
		}
	}()

	doc, err := r.lib.Load(buf, LoadOptions{IgnoreEncryption: true})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	doc.SetTitle("")
	doc.SetAuthor("")
	doc.SetSubject("")
	doc.SetKeywords(nil)
	doc.SetProducer(r.cfg.Producer)
	doc.SetCreator(r.cfg.Creator)
	return doc.Save(SaveOptions{UseObjectStreams: true})
}

// monotonic wraps fn so it never sees a smaller value than before. A nil fn
// yields a no-op.
func monotonic(fn ProgressFunc) ProgressFunc {
	last := -1
	return func(p int) {
		if fn == nil || p <= last {
			return
		}
		if p > progressDone {
			p = progressDone
		}
		last = p
		fn(p)
	}
}
