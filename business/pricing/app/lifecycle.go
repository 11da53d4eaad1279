package app

import (
	"context"
	"sync"
	"time"

	"github.com/kbaldwin/dexquote/internal/cache"
	"github.com/kbaldwin/dexquote/internal/logger"
)

// lifecycleOp names which operation a retry is de-duplicated against,
// since init and release share the same adapter key space.
type lifecycleOp string

const (
	opInitialize lifecycleOp = "initialize"
	opRelease    lifecycleOp = "release"
)

// LifecycleConfig holds SETUP_RETRY_TIMEOUT and the process's master/
// replica role (spec.md §6, §6 "Configuration").
type LifecycleConfig struct {
	SetupRetryTimeout time.Duration
	// IsSlave is consulted once per init call; replicas skip cache
	// deletion (spec.md §4.6, §5 "Shared cache").
	IsSlave bool
}

// LifecycleManager initializes and releases adapters with bounded-
// isolation, unbounded-duration retry (C6). Each failed operation is
// retried after SetupRetryTimeout, de-duplicated per (operation, adapter
// key) so a second Initialize call while a retry is already pending for
// the same adapter does not spawn a second retry loop.
type LifecycleManager struct {
	registry *Registry
	cfg      LifecycleConfig
	cache    cache.RawDeleter // nil means no shared cache is wired
	logger   logger.LoggerInterface

	mu      sync.Mutex
	pending map[lifecycleOp]map[string]struct{}

	// background is the context retries run under once the call that
	// scheduled them returns; it outlives any single Initialize/
	// ReleaseResources call, per spec.md §5 "Cancellation": already-
	// scheduled retries continue in the background.
	background context.Context
}

// NewLifecycleManager wires a LifecycleManager to registry, an optional
// shared cache (nil if none is configured), and cfg. background is the
// context retries run under; it should live for the process's lifetime.
func NewLifecycleManager(registry *Registry, sharedCache cache.RawDeleter, cfg LifecycleConfig, log logger.LoggerInterface, background context.Context) *LifecycleManager {
	return &LifecycleManager{
		registry:   registry,
		cfg:        cfg,
		cache:      sharedCache,
		logger:     log,
		pending:    map[lifecycleOp]map[string]struct{}{opInitialize: {}, opRelease: {}},
		background: background,
	}
}

// Initialize invokes InitializePricing on each of keys concurrently.
// Never returns an error that should be treated as fatal: failures are
// logged and scheduled for retry (spec.md §4.6, §6 "never fails fatally").
func (m *LifecycleManager) Initialize(ctx context.Context, block uint64, keys []string) {
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			m.runInitialize(ctx, block, key)
		}(key)
	}
	wg.Wait()
}

func (m *LifecycleManager) runInitialize(ctx context.Context, block uint64, key string) {
	adapter, err := m.registry.GetDexByKey(key)
	if err != nil {
		m.logger.Warn(ctx, "lifecycle init: unknown dex key", "dex", key)
		return
	}

	caps := adapter.Capabilities()
	if !caps.HasInitializePricing {
		return
	}

	if m.cache != nil && caps.CacheStateKey != "" {
		if m.cfg.IsSlave {
			m.logger.Debug(ctx, "replica skips cache invalidation", "dex", key, "cache_key", caps.CacheStateKey)
		} else if err := m.cache.RawDelete(ctx, caps.CacheStateKey); err != nil {
			m.logger.Warn(ctx, "cache invalidation failed", "dex", key, "cache_key", caps.CacheStateKey, "error", err)
		}
	}

	if err := adapter.InitializePricing(ctx, block); err != nil {
		m.logger.Error(ctx, "adapter initialization failed, scheduling retry", "dex", key, "error", err)
		m.scheduleRetry(opInitialize, key, func(ctx context.Context) error {
			return adapter.InitializePricing(ctx, block)
		})
		return
	}
	m.logger.Info(ctx, "adapter initialized", "dex", key, "block", block)
}

// ReleaseResources invokes ReleaseResources on each of keys concurrently,
// with the same logged-and-retried failure handling as Initialize.
func (m *LifecycleManager) ReleaseResources(ctx context.Context, keys []string) {
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			m.runRelease(ctx, key)
		}(key)
	}
	wg.Wait()
}

func (m *LifecycleManager) runRelease(ctx context.Context, key string) {
	adapter, err := m.registry.GetDexByKey(key)
	if err != nil {
		m.logger.Warn(ctx, "lifecycle release: unknown dex key", "dex", key)
		return
	}

	caps := adapter.Capabilities()
	if !caps.HasReleaseResources {
		return
	}

	if err := adapter.ReleaseResources(ctx); err != nil {
		m.logger.Error(ctx, "adapter release failed, scheduling retry", "dex", key, "error", err)
		m.scheduleRetry(opRelease, key, adapter.ReleaseResources)
		return
	}
	m.logger.Info(ctx, "adapter released", "dex", key)
}

// scheduleRetry starts a background retry loop for (op, key) unless one is
// already pending, matching the teacher's reconnect goroutine pattern
// (business/pricing's Binance client; spec.md §9 "source uses recursive
// setTimeout"). Retry is unbounded and only stops on success or process
// exit via m.background.
func (m *LifecycleManager) scheduleRetry(op lifecycleOp, key string, attempt func(context.Context) error) {
	m.mu.Lock()
	if _, already := m.pending[op][key]; already {
		m.mu.Unlock()
		return
	}
	m.pending[op][key] = struct{}{}
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.pending[op], key)
			m.mu.Unlock()
		}()

		for {
			select {
			case <-m.background.Done():
				return
			case <-time.After(m.cfg.SetupRetryTimeout):
			}

			if err := attempt(m.background); err != nil {
				m.logger.Warn(m.background, "lifecycle retry failed, will retry again", "dex", key, "op", string(op), "error", err)
				continue
			}
			m.logger.Info(m.background, "lifecycle retry succeeded", "dex", key, "op", string(op))
			return
		}
	}()
}
