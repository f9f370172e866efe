package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Storage flags
	Store      string
	SQLitePath string
	MySQLDSN   string

	// Vendor profile flags
	ProfileFile string

	// Review advisor flags
	Provider string

	// Input flags
	InputFile  string
	Replay     string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.Store, "store", "", "Storage backend (memory, sqlite, mysql); defaults to memory without -config")
	flag.StringVar(&flags.SQLitePath, "sqlite-path", "", "SQLite database path")
	flag.StringVar(&flags.MySQLDSN, "mysql-dsn", "", "MySQL DSN")

	flag.StringVar(&flags.ProfileFile, "vendors", "", "Vendor profile file")

	flag.StringVar(&flags.Provider, "provider", "", "Review advisor provider (none, bedrock, gemini, openai)")

	flag.StringVar(&flags.InputFile, "file", "", "Input .eml or webhook JSON file (use stdin if not specified)")
	flag.StringVar(&flags.Replay, "replay", "", "Re-run the pipeline over a stored email id instead of reading input")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file; flags override its values")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		return createConfigFromFlags(flags, logger)
	}); err != nil {
		return nil, err
	}

	if err := registerPipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags loads the optional config file and applies flag overrides
func createConfigFromFlags(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if flags.ConfigFile != "" {
		loaded, err := config.NewFromFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded configuration from file", zap.String("file", loaded.GetViper().ConfigFileUsed()))
		cfg = loaded
	} else {
		cfg = config.NewFromViper(config.NewEmptyViper())
		cfg.Set("store.type", "memory")
	}

	// Set some cli specific settings
	cfg.Set("server.filter_type", "cli")
	cfg.Set("cli.verbose", flags.Verbose)

	if flags.Store != "" {
		cfg.Set("store.type", flags.Store)
	}
	if flags.SQLitePath != "" {
		cfg.Set("store.sqlite_path", flags.SQLitePath)
	}
	if flags.MySQLDSN != "" {
		cfg.Set("store.mysql_dsn", flags.MySQLDSN)
	}
	if flags.ProfileFile != "" {
		cfg.Set("patterns.source", "file")
		cfg.Set("patterns.file", flags.ProfileFile)
	}
	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}

	return cfg, nil
}
