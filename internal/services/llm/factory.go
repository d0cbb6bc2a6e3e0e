package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

// NewAnalyzerFromConfig creates the analyzer for the configured provider.
// The "heuristic" provider (or a provider that fails to initialize in
// development) yields an analyzer with no LLM backend.
func NewAnalyzerFromConfig(config *common.LLMConfig, logger arbor.ILogger) (*Analyzer, error) {
	provider := strings.ToLower(config.Provider)
	logger.Info().Str("provider", provider).Msg("Initializing LLM analyzer")

	switch provider {
	case "", "heuristic":
		return NewAnalyzer(nil, logger), nil
	case "claude":
		p, err := NewClaudeProvider(config, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create claude provider: %w", err)
		}
		return NewAnalyzer(p, logger), nil
	case "gemini":
		p, err := NewGeminiProvider(config, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini provider: %w", err)
		}
		return NewAnalyzer(p, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: must be claude, gemini or heuristic", config.Provider)
	}
}

const keywordPrompt = "Generate %d English search keywords (1-3 words each) for the research " +
	"need below. Output a JSON array of strings, for example [\"keyword one\", \"keyword two\"]. " +
	"Output fewer keywords if the need cannot support the requested count.\n\nResearch need:\n%s"

// SuggestKeywords derives search keywords from a free-text research
// description, via the provider when available, else heuristically.
func (a *Analyzer) SuggestKeywords(ctx context.Context, description string, count int) []string {
	cleaned := strings.TrimSpace(description)
	if cleaned == "" {
		return []string{}
	}
	if count < 1 {
		count = 5
	}
	if a.provider == nil {
		return SuggestKeywordsHeuristic(cleaned, count)
	}

	raw, err := a.provider.Chat(ctx, fmt.Sprintf(keywordPrompt, count, cleaned))
	if err != nil {
		a.logger.Warn().Err(err).Msg("Keyword suggestion failed, using heuristic keywords")
		return SuggestKeywordsHeuristic(cleaned, count)
	}

	block := raw
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			block = raw[start : end+1]
		}
	}
	var parsed []string
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		a.logger.Warn().Msg("Keyword suggestion returned unstructured content, using heuristic keywords")
		return SuggestKeywordsHeuristic(cleaned, count)
	}

	keywords := make([]string, 0, count)
	seen := make(map[string]bool)
	for _, item := range parsed {
		token := strings.TrimSpace(item)
		if token == "" || seen[strings.ToLower(token)] {
			continue
		}
		seen[strings.ToLower(token)] = true
		keywords = append(keywords, token)
		if len(keywords) >= count {
			break
		}
	}
	return keywords
}
