package partition

import (
	"testing"

	"github.com/pdeblois/crunch/internal/types"
)

func entries(n int) []types.FileEntry {
	out := make([]types.FileEntry, n)
	for i := range out {
		out[i] = types.FileEntry{Path: string(rune('a' + i))}
	}
	return out
}

func TestSplitRoundRobin(t *testing.T) {
	queues := Split(entries(7), 3)
	if len(queues) != 3 {
		t.Fatalf("expected 3 queues, got %d", len(queues))
	}
	want := [][]string{{"a", "d", "g"}, {"b", "e"}, {"c", "f"}}
	for w, q := range queues {
		if len(q) != len(want[w]) {
			t.Fatalf("queue %d: expected %d entries, got %d", w, len(want[w]), len(q))
		}
		for i, e := range q {
			if e.Path != want[w][i] {
				t.Errorf("queue %d[%d] = %q, want %q", w, i, e.Path, want[w][i])
			}
		}
	}
}

func TestSplitQueueSizesWithinOne(t *testing.T) {
	queues := Split(entries(10), 3)
	min, max := len(queues[0]), len(queues[0])
	for _, q := range queues {
		if len(q) < min {
			min = len(q)
		}
		if len(q) > max {
			max = len(q)
		}
	}
	if max-min > 1 {
		t.Errorf("queue sizes differ by more than 1: min=%d max=%d", min, max)
	}
}

func TestSplitEmpty(t *testing.T) {
	queues := Split(nil, 4)
	if len(queues) != 4 {
		t.Fatalf("expected 4 queues, got %d", len(queues))
	}
	for _, q := range queues {
		if len(q) != 0 {
			t.Errorf("expected empty queue, got %d entries", len(q))
		}
	}
}

func TestSplitSingleWorker(t *testing.T) {
	queues := Split(entries(5), 1)
	if len(queues[0]) != 5 {
		t.Errorf("expected all 5 entries in the single queue, got %d", len(queues[0]))
	}
}
