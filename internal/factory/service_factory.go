package factory

import (
	"github.com/mikey/vendor-order-intake/internal/classify"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/denylist"
	"go.uber.org/zap"
)

// ServiceFactory builds the pipeline's rule-driven components from configuration
type ServiceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResolver creates the forwarded-sender resolver. An empty configured
// deny-list means the built-in one.
func (f *ServiceFactory) CreateResolver() *classify.Resolver {
	domains := f.cfg.GetStringSlice("resolver.denied_domains")
	if len(domains) == 0 {
		domains = denylist.DefaultDomains
	}
	checker := denylist.NewChecker(domains, f.logger)
	return classify.NewResolver(checker, f.logger)
}

// CreateClassifier creates the vendor classifier with the configured thresholds
func (f *ServiceFactory) CreateClassifier() *classify.Classifier {
	c := f.cfg.GetClassifier()
	return classify.NewClassifier(classify.Thresholds{
		AcceptFloor: c.AcceptFloor,
		Weights: core.TierWeights{
			Domain:    c.DomainWeight,
			Signature: c.SignatureWeight,
			Weak:      c.WeakWeight,
		},
		RequiredMatches: c.RequiredMatches,
	}, f.logger)
}

// CreateCatalogService creates the catalog service with the configured confidences
func (f *ServiceFactory) CreateCatalogService(store core.Store) *core.CatalogService {
	c := f.cfg.GetCatalog()
	return core.NewCatalogService(store, f.logger, c.ExtractedConfidence, c.EnrichedConfidence)
}
