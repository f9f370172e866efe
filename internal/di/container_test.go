package di

import (
	"context"
	"os"
	"testing"

	"github.com/mikey/vendor-order-intake/internal/adapters/filter"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildContainer(t *testing.T) {
	container, err := BuildContainer()
	require.NoError(t, err)
	assert.NotNil(t, container)
}

func TestBuildCLIContainer_ProcessesReceipt(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{ProfileFile: "../../configs/vendors.yaml"})
	require.NoError(t, err)

	text, err := os.ReadFile("../extract/modernoptical/testdata/order_6817.txt")
	require.NoError(t, err)

	err = container.Invoke(func(emailFilter ports.EmailFilter, cfg *config.Config) error {
		assert.IsType(t, &filter.CliFilter{}, emailFilter)
		assert.Equal(t, "memory", cfg.GetStore().Type)

		result, err := emailFilter.ProcessEmail(context.Background(), &core.Email{
			From:      "noreply@modernoptical.com",
			Subject:   "Modern Optical - Your Receipt for Order Number 6817",
			PlainText: string(text),
		})
		require.NoError(t, err)
		assert.Equal(t, core.ParseStatusParsed, result.ParseStatus)
		assert.Equal(t, "6817", result.Order.OrderNumber)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateConfigFromFlags_Overrides(t *testing.T) {
	cfg, err := createConfigFromFlags(&CLIFlags{
		Store:      "sqlite",
		SQLitePath: "/tmp/intake.db",
		Provider:   "openai",
		Verbose:    true,
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.GetStore().Type)
	assert.Equal(t, "/tmp/intake.db", cfg.GetStore().SQLitePath)
	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, "cli", cfg.GetString("server.filter_type"))
	assert.True(t, cfg.GetBool("cli.verbose"))
}

func TestCreateConfigFromFlags_MissingFile(t *testing.T) {
	_, err := createConfigFromFlags(&CLIFlags{ConfigFile: "/nonexistent/config.yaml"}, zap.NewNop())
	assert.Error(t, err)
}
