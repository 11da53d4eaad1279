// Package poolstate implements the event-backed pool state manager (C2):
// per-pool history keyed by block, multicall warming, and log-driven
// incremental updates (spec.md §4.2).
package poolstate

import (
	"sort"
	"sync"

	"github.com/kbaldwin/dexquote/business/pricing/domain"
)

// snapshot pairs a committed state with the block it became valid at.
type snapshot struct {
	block uint64
	state domain.PoolState
}

// History is a per-pool, block-indexed log of committed states, kept
// sorted by block and never trimmed. Reads are O(log n) via binary search; writes are O(1) amortized
// since log processing appends in increasing block order in practice, but
// History tolerates out-of-order inserts by keeping the slice sorted.
type History struct {
	mu        sync.RWMutex
	snapshots []snapshot
}

// NewHistory creates an empty per-pool history.
func NewHistory() *History {
	return &History{}
}

// Set commits state as valid starting at block. A Set at a block that
// already has an entry replaces that entry, matching "a pool's state is
// defined at exactly one block" (spec.md §3 invariant 2); a Set at any
// other block inserts a new entry in block order.
func (h *History) Set(block uint64, state domain.PoolState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := sort.Search(len(h.snapshots), func(i int) bool { return h.snapshots[i].block >= block })
	if i < len(h.snapshots) && h.snapshots[i].block == block {
		h.snapshots[i].state = state
		return
	}
	h.snapshots = append(h.snapshots, snapshot{})
	copy(h.snapshots[i+1:], h.snapshots[i:])
	h.snapshots[i] = snapshot{block: block, state: state}
}

// At returns the latest state committed strictly before queryBlock
// (spec.md §4.2 "getPoolState(addr, block) returns state committed
// strictly before block"), or (zero, false) if no such state exists.
func (h *History) At(queryBlock uint64) (domain.PoolState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i := sort.Search(len(h.snapshots), func(i int) bool { return h.snapshots[i].block >= queryBlock })
	if i == 0 {
		return domain.PoolState{}, false
	}
	return h.snapshots[i-1].state, true
}

// Latest returns the most recently committed state regardless of block,
// used by log processing to derive the next state from the current one.
func (h *History) Latest() (domain.PoolState, uint64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.snapshots) == 0 {
		return domain.PoolState{}, 0, false
	}
	last := h.snapshots[len(h.snapshots)-1]
	return last.state, last.block, true
}
