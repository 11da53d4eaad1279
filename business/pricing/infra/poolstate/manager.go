package poolstate

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	blockchainapp "github.com/kbaldwin/dexquote/business/blockchain/app"
	blockchaindomain "github.com/kbaldwin/dexquote/business/blockchain/domain"
	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/internal/apperror"
	"github.com/kbaldwin/dexquote/internal/logger"
)

const tracerName = "pricing/infra/poolstate"

// Manager implements C2 Event-Backed Pool State: it warms a block-indexed
// History per pool via a batched multicall, then keeps it current by
// consuming Sync logs from a live subscription, and answers getPoolState
// queries strictly from committed history (spec.md §4.2).
type Manager struct {
	mu          sync.RWMutex
	descriptors map[domain.PoolIdentifier]Descriptor
	byAddress   map[common.Address]domain.PoolIdentifier
	histories   map[domain.PoolIdentifier]*History

	warming sync.Map // domain.PoolIdentifier -> struct{}, "being warmed" marker (spec.md §5)

	multicaller blockchainapp.Multicaller
	logSub      blockchainapp.LogSubscriber
	logger      logger.LoggerInterface
	tracer      trace.Tracer
}

// NewManager wires the event-backed pool state manager to its outbound
// collaborators.
func NewManager(multicaller blockchainapp.Multicaller, logSub blockchainapp.LogSubscriber, log logger.LoggerInterface) *Manager {
	return &Manager{
		descriptors: make(map[domain.PoolIdentifier]Descriptor),
		byAddress:   make(map[common.Address]domain.PoolIdentifier),
		histories:   make(map[domain.PoolIdentifier]*History),
		multicaller: multicaller,
		logSub:      logSub,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}
}

// Register adds pools to be tracked. Safe to call before or after Warm;
// pools registered after the fact are simply absent from history until the
// next Warm call.
func (m *Manager) Register(descriptors ...Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range descriptors {
		m.descriptors[d.ID] = d
		m.byAddress[d.Address] = d.ID
		if _, ok := m.histories[d.ID]; !ok {
			m.histories[d.ID] = NewHistory()
		}
	}
}

// Warm fetches each registered pool's token0/token1 balances at block via a
// single batched multicall and commits the result as that pool's state at
// block (spec.md §4.2 "warms... via a batched multi-call"). Pools already
// being warmed are skipped to avoid duplicate in-flight work (spec.md §5).
func (m *Manager) Warm(ctx context.Context, block uint64) error {
	ctx, span := m.tracer.Start(ctx, "poolstate.warm", trace.WithAttributes(attribute.Int64("block", int64(block))))
	defer span.End()

	m.mu.RLock()
	targets := make([]Descriptor, 0, len(m.descriptors))
	for _, d := range m.descriptors {
		if _, busy := m.warming.LoadOrStore(d.ID, struct{}{}); busy {
			continue
		}
		targets = append(targets, d)
	}
	m.mu.RUnlock()
	if len(targets) == 0 {
		return nil
	}
	defer func() {
		for _, d := range targets {
			m.warming.Delete(d.ID)
		}
	}()

	calls := make([]blockchaindomain.Call, 0, len(targets)*2)
	for _, d := range targets {
		calls = append(calls,
			blockchaindomain.Call{To: d.Address, Data: balanceOfCalldata(d.Token0AsAddress())},
			blockchaindomain.Call{To: d.Address, Data: balanceOfCalldata(d.Token1AsAddress())},
		)
	}

	results, err := m.multicaller.Aggregate(ctx, block, calls)
	if err != nil {
		return apperror.New(apperror.CodePoolStateNotFound, apperror.WithCause(err), apperror.WithContext("warming pool state"))
	}

	for i, d := range targets {
		r0, r1 := results[2*i], results[2*i+1]
		if r0.Err != nil || r1.Err != nil {
			m.logger.Warn(ctx, "poolstate: warm skipped pool", "pool", d.ID, "reserve0_err", r0.Err, "reserve1_err", r1.Err)
			continue
		}
		reserve0, err0 := decodeUint256(r0.Data)
		reserve1, err1 := decodeUint256(r1.Data)
		if err0 != nil || err1 != nil {
			m.logger.Warn(ctx, "poolstate: decode failed", "pool", d.ID, "err0", err0, "err1", err1)
			continue
		}
		m.mu.RLock()
		hist := m.histories[d.ID]
		m.mu.RUnlock()
		hist.Set(block, domain.NewPoolState(reserve0, reserve1, d.Fee))
	}
	return nil
}

// GetPoolState returns the state committed strictly before block for id, or
// (zero, false) if the pool has no history before that point (spec.md §4.2).
func (m *Manager) GetPoolState(id domain.PoolIdentifier, block uint64) (domain.PoolState, bool) {
	m.mu.RLock()
	hist, ok := m.histories[id]
	m.mu.RUnlock()
	if !ok {
		return domain.PoolState{}, false
	}
	return hist.At(block)
}

// StartLiveUpdates backfills every Sync log from warmBlock through the
// current head, then subscribes to Sync logs for every registered pool and
// folds each one into that pool's History as it arrives, running until ctx
// is cancelled (spec.md §4.2 "subscribes to contract logs from the warm
// block forward"). The backfill closes the gap between the multicall
// snapshot's block and whenever the live subscription actually attaches;
// skipping it would silently drop any Sync event in that window.
func (m *Manager) StartLiveUpdates(ctx context.Context, warmBlock uint64) error {
	m.mu.RLock()
	addresses := make([]common.Address, 0, len(m.descriptors))
	for addr := range m.byAddress {
		addresses = append(addresses, addr)
	}
	m.mu.RUnlock()
	if len(addresses) == 0 {
		return nil
	}

	topics := [][]common.Hash{{SyncEventTopic()}}

	backfilled, err := m.logSub.Backfill(ctx, addresses, topics, warmBlock)
	if err != nil {
		return apperror.New(apperror.CodePoolStateNotFound, apperror.WithCause(err), apperror.WithContext("backfilling pool sync logs"))
	}
	for _, l := range backfilled {
		m.processLog(ctx, l)
	}

	logs, err := m.logSub.Subscribe(ctx, addresses, topics)
	if err != nil {
		return apperror.New(apperror.CodePoolStateNotFound, apperror.WithCause(err), apperror.WithContext("subscribing to pool sync logs"))
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case l, ok := <-logs:
				if !ok {
					return
				}
				m.processLog(ctx, l)
			}
		}
	}()
	return nil
}

// processLog folds one Sync log into its pool's history.
func (m *Manager) processLog(ctx context.Context, l blockchaindomain.Log) {
	m.mu.RLock()
	id, ok := m.byAddress[l.Address]
	var d Descriptor
	var hist *History
	if ok {
		d = m.descriptors[id]
		hist = m.histories[id]
	}
	m.mu.RUnlock()
	if !ok {
		return
	}

	reserve0, reserve1, err := decodeSync(l.Data)
	if err != nil {
		m.logger.Warn(ctx, "poolstate: decode sync log failed", "pool", id, "error", err)
		return
	}
	hist.Set(l.BlockNumber, domain.NewPoolState(reserve0, reserve1, d.Fee))
}

// Token0AsAddress and Token1AsAddress expose the descriptor's token pair as
// common.Address for multicall construction.
func (d Descriptor) Token0AsAddress() common.Address { return common.HexToAddress(d.Token0.Address()) }
func (d Descriptor) Token1AsAddress() common.Address { return common.HexToAddress(d.Token1.Address()) }
