package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/vendor-order-intake/internal/adapters/profiles"
	"github.com/mikey/vendor-order-intake/internal/classify"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/di"
	"github.com/mikey/vendor-order-intake/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	store core.Store,
	source core.ProfileSource,
	patterns *classify.PatternStore,
	orders *core.OrderService,
	advisor core.VendorAdvisor,
) error {
	defer logger.Sync()

	// Reload vendor profiles when the file changes
	if fileSource, ok := source.(*profiles.FileSource); ok {
		fileSource.Watch(patterns.Invalidate)
	}

	interval, err := cfg.GetDuration("orders.reconcile_interval")
	if err != nil {
		return fmt.Errorf("invalid orders.reconcile_interval: %w", err)
	}
	var reconciler *core.Reconciler
	if interval > 0 {
		reconciler = core.NewReconciler(orders, interval, logger)
		reconciler.Start()
	}

	// Start the filter
	if err := emailFilter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the filter
	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	if reconciler != nil {
		reconciler.Stop()
	}

	// Close any resources that need closing
	if closer, ok := advisor.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close review advisor", zap.Error(err))
		}
	}
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
