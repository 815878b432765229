// Package crunch is the generic parallel batch engine (spec §4.C, §4.D):
// given a directory or a pre-scanned list of files, a per-file analysis
// function, and an optional progress callback, it distributes files
// across a fixed worker pool, invokes the analysis function once per
// file, and returns a result slice in discovery order with per-file
// failures represented as an absent slot rather than aborting the batch.
package crunch

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdeblois/crunch/internal/partition"
	"github.com/pdeblois/crunch/internal/replay"
	"github.com/pdeblois/crunch/internal/scanner"
	"github.com/pdeblois/crunch/internal/types"
)

// DefaultProgressInterval is the poll period used when Params leaves
// ProgressInterval at zero, grounded on the teacher's progress bar
// refresh cadence.
const DefaultProgressInterval = 50 * time.Millisecond

// Params configures one crunch run. CrunchFunc and ParserFactory are
// required; everything else has a documented default.
type Params[R any] struct {
	// CrunchFunc runs once per successfully loaded file and produces the
	// result stored at that file's slot. Required.
	CrunchFunc func(replay.Parser) R

	// ParserFactory constructs the Parser each worker uses. Required.
	ParserFactory replay.Factory

	// ProgressFunc, if set, is polled with (processed, total) every
	// ProgressInterval until the batch completes.
	ProgressFunc func(processed, total int)

	// ProgressInterval is the poll period for ProgressFunc. Defaults to
	// DefaultProgressInterval.
	ProgressInterval time.Duration

	// DesiredWorkerCount targets this many workers, clamped to
	// [1, runtime.NumCPU()]. Zero selects max(1, runtime.NumCPU()-1).
	DesiredWorkerCount int

	// ScanWorkerCount bounds the concurrency of the directory walk
	// itself (independent of the crunch worker pool). Zero selects the
	// crunch worker count, i.e. DesiredWorkerCount after clamping.
	ScanWorkerCount int
}

func clampWorkers(desired int) int {
	hw := runtime.NumCPU()
	if desired <= 0 {
		desired = hw - 1
	}
	if desired < 1 {
		desired = 1
	}
	if desired > hw {
		desired = hw
	}
	return desired
}

// CrunchDirectory scans path (recursively or flat, per recursive) and
// crunches every admitted file, per spec §4.C.
func CrunchDirectory[R any](ctx context.Context, params Params[R], path string, recursive bool) ([]types.Option[R], error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	scanWorkers := params.ScanWorkerCount
	if scanWorkers <= 0 {
		scanWorkers = clampWorkers(params.DesiredWorkerCount)
	}

	sc := scanner.New(path, recursive, scanWorkers)
	entries, err := sc.Run(ctx)
	if err != nil {
		return nil, &ScanError{Path: path, Err: err}
	}

	return CrunchFiles(ctx, params, entries)
}

// CrunchFiles crunches a pre-scanned list of entries, per spec §4.C
// steps 3-7.
func CrunchFiles[R any](ctx context.Context, params Params[R], entries []types.FileEntry) ([]types.Option[R], error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	total := len(entries)
	result := make([]types.Option[R], total)
	if total == 0 {
		return result, nil
	}

	workers := clampWorkers(params.DesiredWorkerCount)
	queues := partition.Split(entries, workers)

	interval := params.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	counters := make([]atomic.Int64, workers)
	workerResults := make([][]types.Option[R], workers)

	var failOnce sync.Once
	var firstErr error
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	var wg sync.WaitGroup
	for k := 0; k < workers; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			workerResults[k] = runWorker(runCtx, k, queues[k], params, &counters[k], fail)
		}(k)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Coarse sleep-based polling: a human-facing progress signal, not a
	// correctness mechanism (spec §4.C.5), so a busy-wait loop is fine.
pollLoop:
	for params.ProgressFunc != nil {
		select {
		case <-done:
			break pollLoop
		case <-time.After(interval):
			params.ProgressFunc(sumProcessed(counters), total)
		}
	}
	<-done

	if firstErr != nil {
		return nil, firstErr
	}

	if params.ProgressFunc != nil {
		params.ProgressFunc(sumProcessed(counters), total)
	}

	for k := 0; k < workers; k++ {
		for j, opt := range workerResults[k] {
			result[j*workers+k] = opt
		}
	}

	return result, nil
}

func sumProcessed(counters []atomic.Int64) int {
	sum := 0
	for k := range counters {
		sum += int(counters[k].Load())
	}
	return sum
}

func validate[R any](params Params[R]) error {
	if params.CrunchFunc == nil {
		return &ConfigError{Field: "CrunchFunc"}
	}
	if params.ParserFactory == nil {
		return &ConfigError{Field: "ParserFactory"}
	}
	return nil
}

// runWorker drains queue in order, incrementing counter after every
// attempt regardless of outcome (spec §4.D). It stops early, leaving the
// remainder of queue unprocessed (zero-value None slots), if ctx is
// cancelled by another worker's panic.
func runWorker[R any](ctx context.Context, worker int, queue []types.FileEntry, params Params[R], counter *atomic.Int64, fail func(error)) []types.Option[R] {
	results := make([]types.Option[R], len(queue))
	for i, entry := range queue {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		results[i] = processEntry(worker, entry, params, fail)
		counter.Add(1)
	}
	return results
}

// processEntry is the per-worker driver (spec §4.D): construct a parser,
// load the file, treat Load()==true && Replay().Errors==0 as success,
// then run CrunchFunc. A panic here is recovered and reported as a
// single fatal AnalysisError for the whole batch.
func processEntry[R any](worker int, entry types.FileEntry, params Params[R], fail func(error)) (opt types.Option[R]) {
	defer func() {
		if r := recover(); r != nil {
			fail(&AnalysisError{Worker: worker, Path: entry.Path, Panic: r})
			opt = types.None[R]()
		}
	}()

	parser := params.ParserFactory(0)
	if !parser.Load(entry.Path) {
		return types.None[R]()
	}
	if parser.Replay().Errors != 0 {
		return types.None[R]()
	}
	return types.Some(params.CrunchFunc(parser))
}
