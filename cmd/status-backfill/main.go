package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/di"
	"go.uber.org/zap"
)

func main() {
	flag.Parse()

	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Backfill error: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger, orders *core.OrderService, store core.Store) error {
	defer logger.Sync()
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repaired, err := orders.Backfill(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Repaired %d order statuses\n", repaired)
	return nil
}
