// Package partition implements the round-robin worker-queue split used by
// the crunch engine to hand discovered files to workers without any
// shared-queue contention (spec §4.B).
package partition

import "github.com/pdeblois/crunch/internal/types"

// Split distributes entries across workers FIFO queues by round-robin:
// entry at discovery index i goes into queue i%workers at position
// i/workers. Queue sizes differ by at most one, and the placement is
// exactly invertible — worker k's j-th result belongs at global index
// j*workers+k, which is what the crunch engine's aggregation step relies
// on.
func Split(entries []types.FileEntry, workers int) [][]types.FileEntry {
	if workers < 1 {
		workers = 1
	}
	queues := make([][]types.FileEntry, workers)
	for i, e := range entries {
		w := i % workers
		queues[w] = append(queues[w], e)
	}
	return queues
}
