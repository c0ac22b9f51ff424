// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sassoftware/viya-pdf-press/logger"
)

// Download is a produced file waiting to be fetched.
type Download struct {
	// ID is the key under which a DownloadStore holds the file, if any.
	ID   string
	Name string
	Data []byte
	// Size is len(Data).
	Size int
	// Original is the size of the input the file was made from, or 0.
	Original int
	// Saved is the size reduction in percent, one decimal, never negative.
	Saved float64

	ImagesFound      int
	ImagesCompressed int
}

func newDownload(name string, data []byte, original int) *Download {
	return &Download{
		Name:     name,
		Data:     data,
		Size:     len(data),
		Original: original,
		Saved:    SavedPercent(original, len(data)),
	}
}

// SavedPercent returns max(0, (1-out/in)*100) rounded to one decimal.
func SavedPercent(in, out int) float64 {
	if in <= 0 {
		return 0
	}
	p := (1 - float64(out)/float64(in)) * 100
	if p < 0 {
		return 0
	}
	return math.Round(p*10) / 10
}

// FormatBytes renders n as "N B", "N KB" or "N.N MB".
func FormatBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.0f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// DownloadStore holds downloads for a limited time. Each entry is released
// ttl after it was added.
type DownloadStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	next    uint64
	entries map[string]*storeEntry
	closed  bool
}

type storeEntry struct {
	d     *Download
	timer *time.Timer
}

// NewDownloadStore creates a store whose entries live for ttl.
func NewDownloadStore(ttl time.Duration) *DownloadStore {
	return &DownloadStore{ttl: ttl, entries: map[string]*storeEntry{}}
}

// Put adds d and returns its id. Putting into a closed store returns "".
func (s *DownloadStore) Put(d *Download) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}
	s.next++
	id := fmt.Sprintf("dl-%d", s.next)
	s.entries[id] = &storeEntry{
		d:     d,
		timer: time.AfterFunc(s.ttl, func() { s.release(id) }),
	}
	logger.Debug(fmt.Sprintf("downloads: %s holds %s (%s) for %v", id, d.Name, FormatBytes(d.Size), s.ttl))
	return id
}

// Get returns the download stored under id.
func (s *DownloadStore) Get(id string) (*Download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.d, true
}

// Len returns the number of live downloads.
func (s *DownloadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *DownloadStore) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		delete(s.entries, id)
		logger.Debug(fmt.Sprintf("downloads: released %s", id))
	}
}

// Close releases every download and stops all timers.
func (s *DownloadStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.closed = true
}
