// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sassoftware/viya-pdf-press/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Processor defines the contract for compressing a PDF file.
type Processor interface {
	Compress(ctx context.Context, path string) (*Download, error)
}

// FailurePolicy decides what a batch does with a file that failed.
// Different policies handle errors differently (strict vs. best-effort).
type FailurePolicy interface {
	Handle(name string, err error) error
}

// StrictPolicy enforces strict batches.
// If any file fails, the entire batch fails.
type StrictPolicy struct{}

func (s *StrictPolicy) Handle(name string, err error) error {
	return fmt.Errorf("%s: %w", name, err)
}

// BestEffortPolicy tolerates errors.
// If a file fails, the batch simply skips it.
type BestEffortPolicy struct{}

func (b *BestEffortPolicy) Handle(name string, err error) error {
	logger.Debug("BestEffortPolicy: failed to compress file, ignoring error", "file", name, "err", err, true)
	return nil
}

// BatchResult holds the outcome of CompressAll, index aligned with its input.
type BatchResult struct {
	Downloads []*Download
	Errors    []error
}

// processor manages PDF compression with concurrency control
// and delegates batch failures to the chosen FailurePolicy.
type processor struct {
	cfg    *Config
	sem    *semaphore.Weighted
	policy FailurePolicy
	rc     *Recompressor
	store  *DownloadStore
}

// NewProcessor validates the config and creates a new processor.
// Selects the correct FailurePolicy (Strict or BestEffort).
func NewProcessor(cfg *Config) *processor {
	var policy FailurePolicy
	switch cfg.Mode {
	case Strict:
		policy = &StrictPolicy{}
	case BestEffort:
		policy = &BestEffortPolicy{}
	}

	//Validate the config object
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	//Set the logger function
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	logger.Debug(fmt.Sprintf("Processor initialized: mode=%v, max_concurrent_pdfs=%d, quality=%.2f",
		cfg.Mode, cfg.MaxConcurrentPDFs, cfg.JPEGQuality()), true)

	return &processor{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrentPDFs)),
		policy: policy,
		rc:     NewRecompressor(NewPDFLibrary(), NewRasterCodec(), cfg),
		store:  NewDownloadStore(cfg.DownloadTTL),
	}
}

// Compress reads the PDF at path and compresses it.
func (p *processor) Compress(ctx context.Context, path string) (*Download, error) {
	logger.Debug(fmt.Sprintf("Starting compression: path=%s", path), true)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug(fmt.Sprintf("Failed to read PDF: path=%s err=%v", path, err), true)
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.CompressBytes(ctx, filepath.Base(path), data)
}

// CompressBytes compresses data and registers the result as
// compressed_<name> in the download store.
func (p *processor) CompressBytes(ctx context.Context, name string, data []byte) (*Download, error) {
	if err := p.acquireSlot(ctx); err != nil {
		logger.Debug(fmt.Sprintf("Failed to acquire slot: err=%v", err), true)
		return nil, err
	}
	defer p.sem.Release(1)
	logger.Debug(fmt.Sprintf("Slot acquired for compression: name=%s", name), true)

	fileCtx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeout)
	defer cancel()

	res, err := p.rc.Recompress(fileCtx, data, p.cfg.JPEGQuality(), p.progress(name))
	if err != nil {
		logger.Debug(fmt.Sprintf("Compression failed: name=%s err=%v", name, err), true)
		return nil, err
	}

	d := newDownload("compressed_"+name, res.Bytes, len(data))
	d.ImagesFound = res.ImagesFound
	d.ImagesCompressed = res.ImagesCompressed
	d.ID = p.store.Put(d)

	logger.Info(fmt.Sprintf("Compressed %s: %s -> %s (%.1f%% saved, %d/%d images)",
		name, FormatBytes(len(data)), FormatBytes(d.Size), d.Saved, d.ImagesCompressed, d.ImagesFound), true)
	return d, nil
}

// CompressAll compresses every path concurrently, at most MaxConcurrentPDFs
// at a time. In strict mode the first failure cancels the rest and is
// returned; in best-effort mode failures are only recorded in the result.
func (p *processor) CompressAll(ctx context.Context, paths []string) (*BatchResult, error) {
	res := &BatchResult{
		Downloads: make([]*Download, len(paths)),
		Errors:    make([]error, len(paths)),
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			d, err := p.Compress(gctx, path)
			if err != nil {
				res.Errors[i] = err
				return p.policy.Handle(path, err)
			}
			res.Downloads[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Debug(fmt.Sprintf("Batch stopped: err=%v", err), true)
		return res, err
	}
	return res, nil
}

// Download returns a stored result by id until its time to live expires.
func (p *processor) Download(id string) (*Download, bool) {
	return p.store.Get(id)
}

// Close releases every stored download.
func (p *processor) Close() {
	p.store.Close()
}

// Metadata prints PDF metadata as JSON to the provided writer
func (p *processor) Metadata(ctx context.Context, path string, w io.Writer) error {
	logger.Debug(fmt.Sprintf("Reading metadata: path=%s", path), true)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to open PDF for metadata:")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := MetadataJSON(w, data); err != nil {
		logger.Error("failed to read metadata")
		return err
	}

	logger.Debug(fmt.Sprintf("Metadata extraction completed: path=%s", path), true)
	return nil
}

func (p *processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}

// progress returns the per-file progress logger, or nil unless DebugOn.
func (p *processor) progress(name string) ProgressFunc {
	if !p.cfg.DebugOn {
		return nil
	}
	return func(percent int) {
		logger.Debug(fmt.Sprintf("Progress: name=%s percent=%d", name, percent))
	}
}
