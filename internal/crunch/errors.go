package crunch

import "fmt"

// ScanError reports a fatal failure while walking the input directory,
// surfaced before any worker starts (spec §4.E).
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("crunch: scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ConfigError reports a missing required Params field, fatal at entry.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("crunch: missing required param %s", e.Field)
}

// AnalysisError wraps a panic recovered from CrunchFunc or a worker. It is
// fatal to the whole batch, per spec §4.E: the engine does not intercept
// per-file crunch_func failures, only a failed Load or a nonzero
// Replay().Errors, which yield a None slot.
type AnalysisError struct {
	Worker int
	Path   string
	Panic  any
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("crunch: worker %d panicked processing %s: %v", e.Worker, e.Path, e.Panic)
}
