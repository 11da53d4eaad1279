package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbaldwin/dexquote/business/pricing/domain"
	"github.com/kbaldwin/dexquote/internal/logger"
)

// lifecycleAdapter fails InitializePricing exactly failCount times before
// succeeding, and closes succeeded on its first success, so retry tests can
// synchronize on the background goroutine instead of sleeping and hoping.
type lifecycleAdapter struct {
	key       string
	caps      Capabilities
	failCount int32

	calls      atomic.Int32
	succeeded  chan struct{}
	succeeding sync.Once

	releases   atomic.Int32
	releaseErr error
}

func newLifecycleAdapter(key string, caps Capabilities) *lifecycleAdapter {
	return &lifecycleAdapter{key: key, caps: caps, succeeded: make(chan struct{})}
}

func (a *lifecycleAdapter) Key() string               { return a.key }
func (a *lifecycleAdapter) Capabilities() Capabilities { return a.caps }

func (a *lifecycleAdapter) InitializePricing(context.Context, uint64) error {
	n := a.calls.Add(1)
	if n <= a.failCount {
		return errors.New("initialize boom")
	}
	a.succeeding.Do(func() { close(a.succeeded) })
	return nil
}

func (a *lifecycleAdapter) ReleaseResources(context.Context) error {
	a.releases.Add(1)
	return a.releaseErr
}

func (a *lifecycleAdapter) GetPoolIdentifiers(context.Context, domain.Token, domain.Token, domain.Side, uint64) ([]domain.PoolIdentifier, error) {
	return nil, nil
}

func (a *lifecycleAdapter) GetPricesVolume(context.Context, domain.Token, domain.Token, []*big.Int, domain.Side, uint64, []domain.PoolIdentifier, domain.TransferFeeParams) ([]domain.PoolPrices[Payload], error) {
	return nil, nil
}

func (a *lifecycleAdapter) GetCalldataGasCost(domain.PoolPrices[Payload]) domain.GasCost {
	return domain.GasCost{}
}

type fakeRawDeleter struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeRawDeleter) RawDelete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeRawDeleter) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.deleted {
		if k == key {
			return true
		}
	}
	return false
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func TestLifecycleManager_Initialize_SkipsWithoutCapability(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasInitializePricing: false})
	mgr := NewLifecycleManager(NewRegistry(adapter), nil, LifecycleConfig{SetupRetryTimeout: time.Hour}, testLogger(), context.Background())

	mgr.Initialize(context.Background(), 1, []string{"a"})

	if adapter.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0 for an adapter without HasInitializePricing", adapter.calls.Load())
	}
}

func TestLifecycleManager_Initialize_MasterInvalidatesCache(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasInitializePricing: true, CacheStateKey: "a:state"})
	fake := &fakeRawDeleter{}
	mgr := NewLifecycleManager(NewRegistry(adapter), fake, LifecycleConfig{SetupRetryTimeout: time.Hour, IsSlave: false}, testLogger(), context.Background())

	mgr.Initialize(context.Background(), 1, []string{"a"})

	if !fake.has("a:state") {
		t.Error("cache was not invalidated by the master")
	}
	if adapter.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", adapter.calls.Load())
	}
}

func TestLifecycleManager_Initialize_ReplicaSkipsCacheInvalidation(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasInitializePricing: true, CacheStateKey: "a:state"})
	fake := &fakeRawDeleter{}
	mgr := NewLifecycleManager(NewRegistry(adapter), fake, LifecycleConfig{SetupRetryTimeout: time.Hour, IsSlave: true}, testLogger(), context.Background())

	mgr.Initialize(context.Background(), 1, []string{"a"})

	if fake.has("a:state") {
		t.Error("a replica must not invalidate the shared cache")
	}
}

func TestLifecycleManager_Initialize_UnknownKeyIsIgnored(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasInitializePricing: true})
	mgr := NewLifecycleManager(NewRegistry(adapter), nil, LifecycleConfig{SetupRetryTimeout: time.Hour}, testLogger(), context.Background())

	mgr.Initialize(context.Background(), 1, []string{"unregistered"})

	if adapter.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0 for an unregistered key", adapter.calls.Load())
	}
}

func TestLifecycleManager_Initialize_RetriesUntilSuccess(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasInitializePricing: true})
	adapter.failCount = 1

	background, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mgr := NewLifecycleManager(NewRegistry(adapter), nil, LifecycleConfig{SetupRetryTimeout: 10 * time.Millisecond}, testLogger(), background)

	mgr.Initialize(context.Background(), 1, []string{"a"})

	select {
	case <-adapter.succeeded:
	case <-time.After(time.Second):
		t.Fatal("adapter never succeeded via retry")
	}
	if adapter.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (one failure, one successful retry)", adapter.calls.Load())
	}
}

func TestLifecycleManager_Initialize_DuplicateRetryIsDeduplicated(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasInitializePricing: true})
	adapter.failCount = 3

	background, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mgr := NewLifecycleManager(NewRegistry(adapter), nil, LifecycleConfig{SetupRetryTimeout: 30 * time.Millisecond}, testLogger(), background)

	// Two concurrent Initialize calls for the same key must not spawn two
	// independent retry loops; the second call's failure should be folded
	// into the retry already pending from the first.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); mgr.Initialize(context.Background(), 1, []string{"a"}) }()
	go func() { defer wg.Done(); mgr.Initialize(context.Background(), 1, []string{"a"}) }()
	wg.Wait()

	select {
	case <-adapter.succeeded:
	case <-time.After(time.Second):
		t.Fatal("adapter never succeeded via retry")
	}
	if adapter.calls.Load() > 5 {
		t.Errorf("calls = %d, want at most 5 (2 initial + up to 3 retries), got excessive calls suggesting duplicate retry loops", adapter.calls.Load())
	}
}

func TestLifecycleManager_ReleaseResources_SkipsWithoutCapability(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasReleaseResources: false})
	mgr := NewLifecycleManager(NewRegistry(adapter), nil, LifecycleConfig{SetupRetryTimeout: time.Hour}, testLogger(), context.Background())

	mgr.ReleaseResources(context.Background(), []string{"a"})

	if adapter.releases.Load() != 0 {
		t.Errorf("releases = %d, want 0 for an adapter without HasReleaseResources", adapter.releases.Load())
	}
}

func TestLifecycleManager_ReleaseResources_InvokesCapableAdapters(t *testing.T) {
	adapter := newLifecycleAdapter("a", Capabilities{HasReleaseResources: true})
	mgr := NewLifecycleManager(NewRegistry(adapter), nil, LifecycleConfig{SetupRetryTimeout: time.Hour}, testLogger(), context.Background())

	mgr.ReleaseResources(context.Background(), []string{"a"})

	if adapter.releases.Load() != 1 {
		t.Errorf("releases = %d, want 1", adapter.releases.Load())
	}
}
