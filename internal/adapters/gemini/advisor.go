package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ContentGenerator is satisfied by *genai.GenerativeModel
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Advisor suggests vendors for unclassified emails using Google Gemini
type Advisor struct {
	client        *genai.Client
	model         ContentGenerator
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAdvisor connects to Gemini with an API key
func NewAdvisor(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Advisor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	advisor := NewAdvisorWithModel(model, modelName, maxBodySize, logger, textProcessor)
	advisor.client = client
	return advisor, nil
}

// NewAdvisorWithModel wraps an already configured model
func NewAdvisorWithModel(
	model ContentGenerator,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Advisor {
	return &Advisor{
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the Gemini client
func (a *Advisor) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// SuggestVendor asks the model which vendor most likely sent the email
func (a *Advisor) SuggestVendor(ctx context.Context, email *core.Email, profiles []core.VendorProfile) (*core.VendorSuggestion, error) {
	body := a.textProcessor.ProcessText(utils.AdviceBody(email), a.maxBodySize)
	prompt := utils.BuildAdvicePrompt(email, profiles, body)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty response from Gemini")
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			reply.WriteString(string(text))
		}
	}
	if reply.Len() == 0 {
		return nil, errors.New("empty response from Gemini")
	}

	a.logger.Debug("Gemini advisor replied",
		zap.String("model", a.modelName),
		zap.Int("reply_size", reply.Len()))

	return utils.ParseVendorAdvice(reply.String(), profiles, a.modelName)
}
