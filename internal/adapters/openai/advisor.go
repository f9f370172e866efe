package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/mikey/vendor-order-intake/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatCompleter is satisfied by *openai.Client
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Advisor suggests vendors for unclassified emails using OpenAI chat completions
type Advisor struct {
	client        ChatCompleter
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAdvisor creates a new OpenAI advisor
func NewAdvisor(
	client ChatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Advisor {
	return &Advisor{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// SuggestVendor asks the model which vendor most likely sent the email
func (a *Advisor) SuggestVendor(ctx context.Context, email *core.Email, profiles []core.VendorProfile) (*core.VendorSuggestion, error) {
	body := a.textProcessor.ProcessText(utils.AdviceBody(email), a.maxBodySize)
	prompt := utils.BuildAdvicePrompt(email, profiles, body)

	req := openai.ChatCompletionRequest{
		Model: a.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You route supplier order emails. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		TopP:        a.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from OpenAI")
	}

	a.logger.Debug("OpenAI advisor replied",
		zap.String("model", a.modelName),
		zap.String("completion_id", resp.ID))

	return utils.ParseVendorAdvice(resp.Choices[0].Message.Content, profiles, a.modelName)
}
