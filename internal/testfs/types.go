// Package testfs builds throwaway replay-directory fixtures for the
// end-to-end harness and drives the crunch binary against them inside a
// Docker container. Adapted from dupedog's filesystem fixture package:
// the chunk-based file generator and the Docker container wrapper are
// kept almost unchanged, while the inode/hardlink verification layer
// (which has no analog once the domain is replay files instead of
// duplicate detection) is replaced with assertions on the queue JSON
// crunch writes.
//
//	given := testfs.FileTree{
//	    Volumes: []Volume{
//	        {MountPoint: "/replays", Files: []File{
//	            {Path: "game_1.slp", Chunks: []Chunk{{Pattern: 'A', Size: "4KiB"}}},
//	            {Path: "nested/game_2.slp", Chunks: []Chunk{{Pattern: 'B', Size: "4KiB"}}},
//	        }},
//	    },
//	}
//	h := testfs.New(t, given)
//	result := h.RunCrunch("run", "--output", "/replays/queue.json")
//	h.RequireExitCode(result, 0)
package testfs

import "github.com/dustin/go-humanize"

// FileTree describes a directory of fixture files to create before an
// E2E run.
type FileTree struct {
	// Volumes are separate tmpfs mounts inside the container.
	Volumes []Volume `json:"volumes"`
}

// Volume is a single tmpfs mount populated with fixture files.
type Volume struct {
	// MountPoint is the absolute path where this volume is mounted.
	MountPoint string `json:"mountPoint"`

	// Files are regular files created under MountPoint.
	Files []File `json:"files,omitempty"`

	// Symlinks are created under MountPoint, exercising the scanner's
	// symlink-to-.slp admission rule.
	Symlinks []Symlink `json:"symlinks,omitempty"`
}

// File describes a single fixture file, relative to its volume.
type File struct {
	// Path is relative to the volume mount point. Subdirectories are
	// created automatically.
	Path string `json:"path"`

	// Chunks specify content as a sequence of pattern-filled regions.
	// Content is arbitrary: no real .slp decoder exists in this repo
	// (see cmd/crunch/parser.go), so the E2E harness exercises the CLI's
	// scan/prompt/write plumbing rather than real combo detection.
	Chunks []Chunk `json:"chunks,omitempty"`
}

// Chunk defines a region of file content filled with a pattern byte.
type Chunk struct {
	// Pattern is the fill byte for this chunk region.
	Pattern rune `json:"pattern"`

	// Size in IEC units (1024-based): "1KiB", "1MiB".
	Size string `json:"size"`
}

// TotalSize calculates the sum of all chunk sizes in bytes.
func (f *File) TotalSize() int64 {
	var total int64
	for _, c := range f.Chunks {
		size, _ := humanize.ParseBytes(c.Size)
		total += int64(size)
	}
	return total
}

// Symlink defines a symbolic link relative to its volume.
type Symlink struct {
	Path   string `json:"path"`
	Target string `json:"target"`
}

// RunResult captures the outcome of running the crunch binary.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
