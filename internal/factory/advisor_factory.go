package factory

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mikey/vendor-order-intake/internal/adapters/bedrock"
	"github.com/mikey/vendor-order-intake/internal/adapters/gemini"
	"github.com/mikey/vendor-order-intake/internal/adapters/openai"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/utils"
	"go.uber.org/zap"
)

// AdvisorFactory creates the review advisor for the configured LLM provider
type AdvisorFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAdvisorFactory creates a new advisor factory
func NewAdvisorFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AdvisorFactory {
	return &AdvisorFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAdvisor returns the configured advisor, or nil when the provider is "none"
func (f *AdvisorFactory) CreateAdvisor(ctx context.Context) (core.VendorAdvisor, error) {
	llmCfg := f.cfg.GetLLM()

	var advisor core.VendorAdvisor
	switch llmCfg.Provider {
	case "", "none":
		f.logger.Info("Review advisor disabled")
		return nil, nil
	case "bedrock":
		a, err := bedrock.NewFactory(f.cfg.GetBedrock(), f.logger, f.textProcessor).CreateAdvisor(ctx)
		if err != nil {
			return nil, err
		}
		advisor = a
	case "gemini":
		a, err := gemini.NewFactory(f.cfg.GetGemini(), f.logger, f.textProcessor).CreateAdvisor(ctx)
		if err != nil {
			return nil, err
		}
		advisor = a
	case "openai":
		a, err := openai.NewFactory(f.cfg.GetOpenAI(), f.logger, f.textProcessor).CreateAdvisor()
		if err != nil {
			return nil, err
		}
		advisor = a
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmCfg.Provider)
	}

	f.logger.Info("Review advisor enabled",
		zap.String("provider", llmCfg.Provider),
		zap.Duration("timeout", llmCfg.Timeout))

	return WithTimeout(advisor, llmCfg.Timeout), nil
}

// WithTimeout bounds every suggestion request made through advisor
func WithTimeout(advisor core.VendorAdvisor, timeout time.Duration) core.VendorAdvisor {
	if timeout <= 0 {
		return advisor
	}
	return &timeoutAdvisor{next: advisor, timeout: timeout}
}

type timeoutAdvisor struct {
	next    core.VendorAdvisor
	timeout time.Duration
}

func (a *timeoutAdvisor) SuggestVendor(ctx context.Context, email *core.Email, profiles []core.VendorProfile) (*core.VendorSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.next.SuggestVendor(ctx, email, profiles)
}

// Close releases the wrapped advisor's client, if it holds one
func (a *timeoutAdvisor) Close() error {
	if closer, ok := a.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
