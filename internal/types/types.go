// Package types provides shared types used across the crunch codebase.
package types

// FileEntry is a discovered replay file: an absolute path plus a cached
// classification. Entries are created once by the scanner and consumed
// once by whichever worker they are assigned to.
type FileEntry struct {
	Path      string
	IsSymlink bool
}

// Option holds the outcome of processing one file: either a successful
// result of type R, or nothing (parse failure, replay errors, etc).
// A CrunchResult is a slice of Option[R] whose length equals the number
// of files the scanner admitted, indexed in scan order.
type Option[R any] struct {
	value R
	ok    bool
}

// Some wraps a successful result.
func Some[R any](v R) Option[R] { return Option[R]{value: v, ok: true} }

// None represents an absent result (per-file failure).
func None[R any]() Option[R] { return Option[R]{} }

// Get returns the wrapped value and whether it is present.
func (o Option[R]) Get() (R, bool) { return o.value, o.ok }

// IsSome reports whether the option carries a value.
func (o Option[R]) IsSome() bool { return o.ok }

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit
// is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent
// acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
