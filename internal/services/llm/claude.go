package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeProvider implements ChatProvider using the Anthropic API.
type ClaudeProvider struct {
	config  *common.LLMConfig
	client  *anthropic.Client
	logger  arbor.ILogger
	timeout time.Duration
	model   string
}

// NewClaudeProvider creates a Claude chat provider from configuration.
func NewClaudeProvider(config *common.LLMConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the claude provider (set ANTHROPIC_API_KEY or llm.api_key)")
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration %q: %w", config.Timeout, err)
	}

	model := config.Model
	if model == "" {
		model = defaultClaudeModel
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))

	return &ClaudeProvider{
		config:  config,
		client:  &client,
		logger:  logger,
		timeout: timeout,
		model:   model,
	}, nil
}

// Name identifies the provider in logs.
func (p *ClaudeProvider) Name() string { return "claude" }

// Chat sends a single-turn prompt and returns the completion text.
func (p *ClaudeProvider) Chat(ctx context.Context, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.config.Temperature))
	}

	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	p.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude completion finished")

	return response.String(), nil
}

func (p *ClaudeProvider) maxTokens() int {
	if p.config.MaxTokens > 0 {
		return p.config.MaxTokens
	}
	return 1024
}
