package classify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultProfileTTL is how long a loaded profile snapshot is served before refresh
const DefaultProfileTTL = 5 * time.Minute

// Snapshot is one loaded set of vendor profiles and the time it was fetched
type Snapshot struct {
	Profiles  []core.VendorProfile
	FetchedAt time.Time
}

// Expired reports whether the snapshot must be refreshed at now
func (s Snapshot) Expired(now time.Time, ttl time.Duration) bool {
	return s.FetchedAt.IsZero() || now.Sub(s.FetchedAt) >= ttl
}

// PatternStore serves vendor profiles from a TTL-bound in-memory snapshot
type PatternStore struct {
	source core.ProfileSource
	ttl    time.Duration
	logger *zap.Logger
	clock  func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	loaded   bool
	group    singleflight.Group
}

// NewPatternStore creates a new pattern store over source
func NewPatternStore(source core.ProfileSource, ttl time.Duration, logger *zap.Logger) *PatternStore {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &PatternStore{
		source: source,
		ttl:    ttl,
		logger: logger,
		clock:  time.Now,
	}
}

// Profiles returns the active profiles, refreshing the snapshot once it has expired.
// A failed refresh falls back to the stale snapshot when there is one.
func (s *PatternStore) Profiles(ctx context.Context) ([]core.VendorProfile, error) {
	s.mu.RLock()
	current, loaded := s.snapshot, s.loaded
	s.mu.RUnlock()

	if !current.Expired(s.clock(), s.ttl) {
		return activeProfiles(current.Profiles), nil
	}

	v, err, _ := s.group.Do("profiles", func() (interface{}, error) {
		if latest := s.Snapshot(); !latest.Expired(s.clock(), s.ttl) {
			return latest, nil
		}

		profiles, err := s.source.LoadProfiles(ctx)
		if err != nil {
			return nil, err
		}

		fresh := Snapshot{Profiles: profiles, FetchedAt: s.clock()}
		s.mu.Lock()
		s.snapshot = fresh
		s.loaded = true
		s.mu.Unlock()

		s.logger.Info("Refreshed vendor profiles",
			zap.Int("profiles", len(profiles)),
			zap.Duration("ttl", s.ttl))
		return fresh, nil
	})
	if err != nil {
		if loaded {
			s.logger.Warn("Vendor profile refresh failed, serving stale snapshot",
				zap.Int("profiles", len(current.Profiles)),
				zap.Error(err))
			return activeProfiles(current.Profiles), nil
		}
		return nil, fmt.Errorf("failed to load vendor profiles: %w", err)
	}

	return activeProfiles(v.(Snapshot).Profiles), nil
}

// Snapshot returns the current snapshot without refreshing it
func (s *PatternStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Invalidate forces the next Profiles call to reload
func (s *PatternStore) Invalidate() {
	s.mu.Lock()
	s.snapshot.FetchedAt = time.Time{}
	s.mu.Unlock()
}

func activeProfiles(profiles []core.VendorProfile) []core.VendorProfile {
	active := make([]core.VendorProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}
