package factory

import (
	"context"
	"fmt"

	"github.com/mikey/vendor-order-intake/internal/adapters/profiles"
	"github.com/mikey/vendor-order-intake/internal/classify"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

// profileWriter is implemented by stores that can hold vendor profiles
type profileWriter interface {
	UpsertProfile(ctx context.Context, p *core.VendorProfile) error
}

// ProfileFactory creates the vendor profile source and the pattern store over it
type ProfileFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	store  core.Store
}

// NewProfileFactory creates a new profile factory
func NewProfileFactory(cfg *config.Config, logger *zap.Logger, store core.Store) *ProfileFactory {
	return &ProfileFactory{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// CreateProfileSource creates the configured profile source, seeding the SQL
// table from the profile file first when asked to
func (f *ProfileFactory) CreateProfileSource(ctx context.Context) (core.ProfileSource, error) {
	patternsCfg, err := f.cfg.GetPatterns()
	if err != nil {
		return nil, err
	}

	switch patternsCfg.Source {
	case "file":
		return profiles.NewFileSource(patternsCfg.File, f.logger), nil
	case "sql":
		source, ok := f.store.(core.ProfileSource)
		if !ok {
			return nil, fmt.Errorf("store does not support sql vendor profiles")
		}
		if patternsCfg.Seed {
			if err := f.seed(ctx, patternsCfg.File); err != nil {
				return nil, err
			}
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported profile source: %s", patternsCfg.Source)
	}
}

// CreatePatternStore wraps source in a TTL-bound snapshot
func (f *ProfileFactory) CreatePatternStore(source core.ProfileSource) (*classify.PatternStore, error) {
	patternsCfg, err := f.cfg.GetPatterns()
	if err != nil {
		return nil, err
	}
	return classify.NewPatternStore(source, patternsCfg.TTL, f.logger), nil
}

func (f *ProfileFactory) seed(ctx context.Context, path string) error {
	writer, ok := f.store.(profileWriter)
	if !ok {
		return fmt.Errorf("store does not support seeding vendor profiles")
	}

	loaded, err := profiles.NewFileSource(path, f.logger).LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seed profiles: %w", err)
	}
	for i := range loaded {
		if err := writer.UpsertProfile(ctx, &loaded[i]); err != nil {
			return fmt.Errorf("failed to seed vendor %s: %w", loaded[i].Code, err)
		}
	}

	f.logger.Info("Seeded vendor profiles",
		zap.String("path", path),
		zap.Int("count", len(loaded)))
	return nil
}
