package gemini

import (
	"context"
	"errors"

	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new Gemini advisors
type Factory struct {
	cfg           config.GeminiConfig
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Gemini advisors
func NewFactory(cfg config.GeminiConfig, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAdvisor creates a new Gemini advisor
func (f *Factory) CreateAdvisor(ctx context.Context) (*Advisor, error) {
	if f.cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	return NewAdvisor(
		ctx,
		f.cfg.APIKey,
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.cfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
