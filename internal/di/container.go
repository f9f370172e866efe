package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/vendor-order-intake/internal/classify"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/extract"
	"github.com/mikey/vendor-order-intake/internal/factory"
	"github.com/mikey/vendor-order-intake/internal/logging"
	"github.com/mikey/vendor-order-intake/internal/ports"
	"github.com/mikey/vendor-order-intake/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := registerPipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// registerPipeline provides everything downstream of *config.Config and *zap.Logger
func registerPipeline(container *dig.Container) error {
	// Register factories
	for _, ctor := range []interface{}{
		factory.NewStoreFactory,
		factory.NewProfileFactory,
		factory.NewServiceFactory,
		factory.NewAdvisorFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}

	// Register vendor profiles
	if err := container.Provide(func(f *factory.ProfileFactory) (core.ProfileSource, error) {
		return f.CreateProfileSource(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ProfileFactory, source core.ProfileSource) (*classify.PatternStore, error) {
		return f.CreatePatternStore(source)
	}); err != nil {
		return err
	}

	// Register classification
	if err := container.Provide(func(f *factory.ServiceFactory) *classify.Resolver {
		return f.CreateResolver()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ServiceFactory) *classify.Classifier {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}
	if err := container.Provide(extract.NewRegistry); err != nil {
		return err
	}

	// Register catalog and order services
	if err := container.Provide(func(f *factory.ServiceFactory, store core.Store) *core.CatalogService {
		return f.CreateCatalogService(store)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(store core.Store, logger *zap.Logger) *core.OrderService {
		return core.NewOrderService(store, logger)
	}); err != nil {
		return err
	}

	// Register review advisor; nil when disabled
	if err := container.Provide(func(f *factory.AdvisorFactory) (core.VendorAdvisor, error) {
		return f.CreateAdvisor(context.Background())
	}); err != nil {
		return err
	}

	// Register intake service
	if err := container.Provide(func(
		patterns *classify.PatternStore,
		resolver *classify.Resolver,
		classifier *classify.Classifier,
		registry *extract.Registry,
		catalog *core.CatalogService,
		orders *core.OrderService,
		store core.Store,
		advisor core.VendorAdvisor,
		logger *zap.Logger,
	) *core.IntakeService {
		return core.NewIntakeService(patterns, resolver, classifier, registry, catalog, orders, store, advisor, logger)
	}); err != nil {
		return err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return err
	}

	return nil
}
