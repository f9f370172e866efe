package classify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	loads    atomic.Int32
	err      error
	delay    time.Duration
	profiles []core.VendorProfile
}

func (f *fakeSource) LoadProfiles(ctx context.Context) ([]core.VendorProfile, error) {
	f.loads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(source core.ProfileSource) (*PatternStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewPatternStore(source, 5*time.Minute, zap.NewNop())
	store.clock = clock.Now
	return store, clock
}

func TestPatternStoreServesActiveProfilesWithinTTL(t *testing.T) {
	source := &fakeSource{profiles: testProfiles()}
	store, clock := newTestStore(source)
	ctx := context.Background()

	profiles, err := store.Profiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 3)

	clock.Advance(4 * time.Minute)
	_, err = store.Profiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), source.loads.Load())

	clock.Advance(time.Minute)
	_, err = store.Profiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.loads.Load())
}

func TestPatternStoreSingleRefreshUnderConcurrency(t *testing.T) {
	source := &fakeSource{profiles: testProfiles(), delay: 50 * time.Millisecond}
	store, _ := newTestStore(source)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profiles, err := store.Profiles(context.Background())
			assert.NoError(t, err)
			assert.Len(t, profiles, 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), source.loads.Load())
}

func TestPatternStoreServesStaleSnapshotOnFailure(t *testing.T) {
	source := &fakeSource{profiles: testProfiles()}
	store, clock := newTestStore(source)
	ctx := context.Background()

	_, err := store.Profiles(ctx)
	require.NoError(t, err)

	source.err = errors.New("config store unavailable")
	clock.Advance(10 * time.Minute)

	profiles, err := store.Profiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 3)
	assert.Equal(t, int32(2), source.loads.Load())
}

func TestPatternStoreErrorWithoutSnapshot(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	store, _ := newTestStore(source)

	_, err := store.Profiles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPatternStoreInvalidate(t *testing.T) {
	source := &fakeSource{profiles: testProfiles()}
	store, _ := newTestStore(source)
	ctx := context.Background()

	_, err := store.Profiles(ctx)
	require.NoError(t, err)

	store.Invalidate()
	assert.True(t, store.Snapshot().Expired(time.Now(), time.Hour))

	_, err = store.Profiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.loads.Load())
}
