package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/vendor-order-intake/internal/adapters/filter"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/di"
	"github.com/mikey/vendor-order-intake/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	intake *core.IntakeService,
	store core.Store,
	advisor core.VendorAdvisor,
) error {
	defer logger.Sync()
	defer closeAll(logger, advisor, store)

	ctx := context.Background()

	if flags.Replay != "" {
		result, err := intake.Replay(ctx, flags.Replay)
		if err != nil {
			return err
		}
		// Print through the filter's encoder
		return printResult(emailFilter, result)
	}

	var input io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		logger.Info("Reading email from stdin")
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	email, err := filter.ParseInput(data)
	if err != nil {
		return err
	}

	_, err = emailFilter.ProcessEmail(ctx, email)
	return err
}

func printResult(emailFilter ports.EmailFilter, result *core.IntakeResult) error {
	printer, ok := emailFilter.(interface {
		PrintResult(result *core.IntakeResult) error
	})
	if !ok {
		return fmt.Errorf("filter cannot print results")
	}
	return printer.PrintResult(result)
}

func closeAll(logger *zap.Logger, resources ...interface{}) {
	for _, r := range resources {
		if closer, ok := r.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close resource", zap.Error(err))
			}
		}
	}
}
