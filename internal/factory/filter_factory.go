package factory

import (
	"fmt"

	"github.com/mikey/vendor-order-intake/internal/adapters/filter"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	intake *core.IntakeService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, intake *core.IntakeService) *FilterFactory {
	return &FilterFactory{
		cfg:    cfg,
		logger: logger,
		intake: intake,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch serverCfg.FilterType {
	case "smtp":
		return filter.NewSMTPFilter(f.intake, f.logger, serverCfg), nil
	case "cli":
		return filter.NewCliFilter(f.intake, f.logger, f.cfg.GetBool("cli.verbose"))
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverCfg.FilterType)
	}
}
