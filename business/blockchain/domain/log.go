package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Log is a contract event log, trimmed to the fields pool-state processing
// needs: which contract emitted it, at which block, and its raw topics/
// data for ABI decoding.
type Log struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Removed     bool
}

// Call is one leg of a batched multi-call: a contract address and ABI-
// encoded calldata, used to warm pool state with a single round trip
// (spec.md §4.2 "batched multi-call").
type Call struct {
	To   common.Address
	Data []byte
}

// CallResult is one Call's outcome: either the raw return data, or an
// error if the underlying eth_call failed.
type CallResult struct {
	Data []byte
	Err  error
}

// BlockRange is an inclusive [From, To] range of block numbers, used to
// batch log backfill (spec.md §4.2 "subscribes to contract logs from the
// warm block forward").
type BlockRange struct {
	From, To uint64
}

// SplitBlockRange divides [from, to] into BlockRange chunks of at most
// batchSize blocks each, oldest first.
func SplitBlockRange(from, to, batchSize uint64) []BlockRange {
	if batchSize == 0 || from > to {
		return nil
	}
	var ranges []BlockRange
	for start := from; start <= to; start += batchSize {
		end := start + batchSize - 1
		if end > to {
			end = to
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
	}
	return ranges
}
