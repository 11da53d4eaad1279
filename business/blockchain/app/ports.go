// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kbaldwin/dexquote/business/blockchain/domain"
)

// BlockSubscriber defines the interface for subscribing to new blocks.
type BlockSubscriber interface {
	// Subscribe starts listening for new blocks and returns a channel of blocks.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed for a transaction.
	EstimateGas(ctx context.Context, data []byte, to string) (uint64, error)
}

// LogSubscriber is the outbound collaborator pool state (C2) uses to back-
// fill and then live-stream contract logs (spec.md §4.2, §6 "Outbound").
type LogSubscriber interface {
	// Backfill returns every log matching addresses from from through the
	// chain's current head, batched internally to respect provider range
	// limits.
	Backfill(ctx context.Context, addresses []common.Address, topics [][]common.Hash, from uint64) ([]domain.Log, error)

	// Subscribe streams logs matching addresses from the current head
	// forward. The returned channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, addresses []common.Address, topics [][]common.Hash) (<-chan domain.Log, error)
}

// Multicaller batches independent eth_call reads into one round trip, used
// by pool state (C2) to warm (balance0, balance1, fee) triples for many
// pools at once (spec.md §4.2 "batched multi-call").
type Multicaller interface {
	Aggregate(ctx context.Context, block uint64, calls []domain.Call) ([]domain.CallResult, error)
}
