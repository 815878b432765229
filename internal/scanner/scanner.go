// Package scanner discovers replay files under a directory using parallel
// traversal.
//
// # Architecture Overview
//
// The scanner uses a concurrent fan-out/fan-in architecture adapted from
// dupedog's filesystem scanner: one walker goroutine per directory,
// bounded by a semaphore, feeding a single collector goroutine.
//
// # Concurrency Model
//
//  1. WALKER GOROUTINES (fan-out) — one per directory, limited by a
//     semaphore, each lists its directory then spawns walkers for
//     subdirectories (recursive mode only).
//  2. COLLECTOR GOROUTINE (fan-in) — single goroutine draining the result
//     channel into a slice.
//  3. MAIN GOROUTINE (orchestrator) — spawns the root walker(s), waits,
//     closes the channel, waits for the collector.
//
// # Order
//
// Flat mode visits the root's immediate children in the order
// os.File.ReadDir yields them — a single walker, no fan-out, so order is
// deterministic and matches the filesystem iterator exactly. Recursive
// mode fans out a goroutine per directory; because directories are
// listed concurrently, the relative order between files from sibling
// subdirectories is whatever the collector happens to receive first.
// This is taken as the canonical "discovery order" per spec §4.A — it is
// still a total order over the admitted files, just not a predictable
// one from the caller's point of view.
package scanner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pdeblois/crunch/internal/types"
)

// ScanError wraps a fatal directory-traversal failure.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

const extension = ".slp"

// Scanner discovers files matching the extension filter using parallel
// directory traversal.
//
// The scanner is designed for single-use: create with New(), call Run()
// once.
type Scanner struct {
	root      string
	recursive bool
	workers   int

	walkerWg  sync.WaitGroup
	walkerSem types.Semaphore
	resultCh  chan types.FileEntry
	errOnce   sync.Once
	firstErr  error
	cancel    context.CancelFunc

	scannedFiles atomic.Int64
	scannedBytes atomic.Int64
	startTime    time.Time
}

// New creates a Scanner rooted at path. workers bounds the number of
// concurrent directory reads in recursive mode; it has no effect in flat
// mode, which never fans out.
func New(root string, recursive bool, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{root: root, recursive: recursive, workers: workers}
}

// Stats summarizes what the most recent Run() call observed. It satisfies
// fmt.Stringer so it can be handed directly to a progress.Bar, mirroring
// dupedog's scanner stats pattern.
type Stats struct {
	ScannedFiles int64
	ScannedBytes int64
	Elapsed      time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned %d files (%s) in %.1fs",
		s.ScannedFiles, humanize.IBytes(uint64(s.ScannedBytes)), s.Elapsed.Seconds())
}

// Stats returns a snapshot of the scan's progress counters. Safe to call
// concurrently with Run (e.g. from a progress poller), and after Run
// returns for a final summary.
func (s *Scanner) Stats() Stats {
	elapsed := time.Duration(0)
	if !s.startTime.IsZero() {
		elapsed = time.Since(s.startTime)
	}
	return Stats{
		ScannedFiles: s.scannedFiles.Load(),
		ScannedBytes: s.scannedBytes.Load(),
		Elapsed:      elapsed,
	}
}

// Run executes the scan and returns the admitted files in discovery
// order (see package doc for what "order" means in recursive mode). A
// directory-read error anywhere in the tree is fatal: Run cancels
// outstanding walkers and returns the first such error wrapped in
// *ScanError.
func (s *Scanner) Run(ctx context.Context) ([]types.FileEntry, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	s.walkerSem = types.NewSemaphore(s.workers)
	s.resultCh = make(chan types.FileEntry, 1000)
	s.startTime = time.Now()

	var results []types.FileEntry
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for r := range s.resultCh {
			results = append(results, r)
		}
	}()

	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		cancel()
		<-collectorDone
		return nil, &ScanError{Path: s.root, Err: err}
	}

	if s.recursive {
		s.walkDirectory(ctx, absRoot)
		s.walkerWg.Wait()
	} else {
		s.walkFlat(ctx, absRoot)
	}

	close(s.resultCh)
	<-collectorDone

	if s.firstErr != nil {
		return nil, s.firstErr
	}
	return results, nil
}

// walkFlat lists only the root's immediate children — no recursion, no
// fan-out, deterministic order.
func (s *Scanner) walkFlat(ctx context.Context, dir string) {
	files, _, err := s.listDirectory(dir)
	if err != nil {
		s.fail(dir, err)
		return
	}
	for _, f := range files {
		select {
		case <-ctx.Done():
			return
		case s.resultCh <- f:
		}
	}
}

// walkDirectory spawns a goroutine to process one directory and
// recursively spawn children, bounded by the walker semaphore.
func (s *Scanner) walkDirectory(ctx context.Context, dir string) {
	s.walkerWg.Add(1)
	go func() {
		defer s.walkerWg.Done()

		s.walkerSem.Acquire()
		defer s.walkerSem.Release()

		select {
		case <-ctx.Done():
			return
		default:
		}

		files, subdirs, err := s.listDirectory(dir)
		if err != nil {
			s.fail(dir, err)
			return
		}

		for _, f := range files {
			select {
			case <-ctx.Done():
				return
			case s.resultCh <- f:
			}
		}

		for _, sub := range subdirs {
			s.walkDirectory(ctx, sub)
		}
	}()
}

// listDirectory reads a single directory, returning admitted files and
// subdirectories. Uses batched ReadDir to bound memory on huge
// directories.
func (s *Scanner) listDirectory(dirPath string) (files []types.FileEntry, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	for {
		entries, readErr := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if readErr != nil && readErr != io.EOF {
				return files, subdirs, readErr
			}
			break
		}

		for _, entry := range entries {
			f, sub, ok := s.processEntry(dirPath, entry)
			if ok {
				files = append(files, f)
			}
			if sub != "" {
				subdirs = append(subdirs, sub)
			}
		}
	}

	return files, subdirs, nil
}

// processEntry classifies a single directory entry.
// Admission rule (spec §4.A): not a directory, is a regular file or
// symlink, has an extension, and the extension is exactly ".slp"
// (case-sensitive).
func (s *Scanner) processEntry(dirPath string, entry os.DirEntry) (f types.FileEntry, subdir string, ok bool) {
	fullPath := filepath.Join(dirPath, entry.Name())

	if entry.IsDir() {
		return types.FileEntry{}, fullPath, false
	}

	isSymlink := entry.Type()&os.ModeSymlink != 0
	if !entry.Type().IsRegular() && !isSymlink {
		return types.FileEntry{}, "", false
	}

	if filepath.Ext(fullPath) != extension {
		return types.FileEntry{}, "", false
	}

	info, err := entry.Info()
	if err != nil {
		return types.FileEntry{}, "", false
	}

	s.scannedFiles.Add(1)
	s.scannedBytes.Add(info.Size())

	return types.FileEntry{Path: fullPath, IsSymlink: isSymlink}, "", true
}

// fail records the first fatal scan error and cancels outstanding
// walkers. Safe to call from multiple walker goroutines.
func (s *Scanner) fail(path string, err error) {
	s.errOnce.Do(func() {
		s.firstErr = &ScanError{Path: path, Err: err}
		if s.cancel != nil {
			s.cancel()
		}
	})
}
