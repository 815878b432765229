//go:build e2e

package testfs

import "testing"

// TestCrunchRunWritesEmptyQueue exercises the full CLI surface against a
// directory of fixture .slp files: every fixture's Load() fails (no real
// decoder is linked into the test binary per cmd/crunch/parser.go), so the
// queue file should still be written, well-formed, and empty.
func TestCrunchRunWritesEmptyQueue(t *testing.T) {
	given := FileTree{
		Volumes: []Volume{
			{MountPoint: "/replays", Files: []File{
				{Path: "game_1.slp", Chunks: []Chunk{{Pattern: 'A', Size: "4KiB"}}},
				{Path: "nested/game_2.slp", Chunks: []Chunk{{Pattern: 'B', Size: "4KiB"}}},
				{Path: "not_a_replay.txt", Chunks: []Chunk{{Pattern: 'C', Size: "1KiB"}}},
			}},
		},
	}

	h := New(t, given)
	result := h.RunCrunch("run", "--output", "/replays/queue.json", "--no-progress")
	h.RequireExitCode(result, 0)

	doc := h.ReadQueueJSON("/replays/queue.json")
	queue, ok := doc["queue"].([]any)
	if !ok {
		t.Fatalf("queue.json missing queue array: %v", doc)
	}
	if len(queue) != 0 {
		t.Errorf("queue length = %d, want 0 (no real decoder linked)", len(queue))
	}
}

// TestCrunchRunPromptsForOutputOnStdin exercises the interactive
// filename prompt when --output is omitted (spec §6).
func TestCrunchRunPromptsForOutputOnStdin(t *testing.T) {
	given := FileTree{
		Volumes: []Volume{
			{MountPoint: "/replays", Files: []File{
				{Path: "game_1.slp", Chunks: []Chunk{{Pattern: 'A', Size: "1KiB"}}},
			}},
		},
	}

	h := New(t, given)
	result := h.RunCrunchWithStdin([]byte("/replays/queue.json\n"), "run", "--no-progress")
	h.RequireExitCode(result, 0)

	doc := h.ReadQueueJSON("/replays/queue.json")
	if _, ok := doc["mode"]; !ok {
		t.Errorf("queue.json missing mode field: %v", doc)
	}
}
