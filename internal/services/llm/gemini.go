package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/colligo/internal/common"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements ChatProvider using the Google Gemini API.
type GeminiProvider struct {
	config  *common.LLMConfig
	client  *genai.Client
	logger  arbor.ILogger
	timeout time.Duration
	model   string
}

// NewGeminiProvider creates a Gemini chat provider from configuration.
func NewGeminiProvider(config *common.LLMConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for the gemini provider (set GEMINI_API_KEY or llm.api_key)")
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration %q: %w", config.Timeout, err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		config:  config,
		client:  client,
		logger:  logger,
		timeout: timeout,
		model:   model,
	}, nil
}

// Name identifies the provider in logs.
func (p *GeminiProvider) Name() string { return "gemini" }

// Chat sends a single-turn prompt and returns the completion text.
func (p *GeminiProvider) Chat(ctx context.Context, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	generateConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.config.Temperature),
	}

	resp, err := p.client.Models.GenerateContent(timeoutCtx, p.model, contents, generateConfig)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Gemini API")
	}
	return response.String(), nil
}
