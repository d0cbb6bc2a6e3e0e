// Package llm produces structured summaries of paper text. A chat provider
// (Claude or Gemini) is asked for JSON fields; any provider failure or
// unstructured reply falls back to a deterministic heuristic so the parse
// stage always receives an analysis.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
)

const (
	// promptTextLimit bounds how much paper text is sent to a provider.
	promptTextLimit = 8000

	summaryPrompt = "You are a research assistant. Read the paper text and extract three " +
		"summaries: the innovation, the method, and the conclusion. Keep each field under " +
		"200 characters; write \"no information\" when a field cannot be determined. " +
		"Return strictly a JSON object with string values for the keys innovation, method " +
		"and conclusion."
)

// PaperAnalysis is the structured summary consumed by the parse stage.
type PaperAnalysis struct {
	Innovation string `json:"innovation"`
	Method     string `json:"method"`
	Conclusion string `json:"conclusion"`
	Summary    string `json:"summary"`
}

// ChatProvider is one LLM backend: prompt in, raw completion out.
type ChatProvider interface {
	Chat(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Analyzer wraps a chat provider with prompt construction, JSON parsing and
// the heuristic fallback. A nil provider means heuristic-only operation.
type Analyzer struct {
	provider ChatProvider
	logger   arbor.ILogger
}

// NewAnalyzer creates an analyzer over the given provider; provider may be
// nil for heuristic-only analysis.
func NewAnalyzer(provider ChatProvider, logger arbor.ILogger) *Analyzer {
	return &Analyzer{provider: provider, logger: logger}
}

// Analyze produces a structured summary of the paper text. It never returns
// an error for provider failures; those degrade to the heuristic summary.
func (a *Analyzer) Analyze(ctx context.Context, text string) PaperAnalysis {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return PaperAnalysis{Innovation: "no text could be extracted from the PDF"}
	}

	if a.provider == nil {
		return heuristicSummary(cleaned)
	}

	prompt := fmt.Sprintf("%s\n\nPaper text:\n---\n%s\n---", summaryPrompt, clipRunes(cleaned, promptTextLimit))
	raw, err := a.provider.Chat(ctx, prompt)
	if err != nil {
		a.logger.Warn().Err(err).Str("provider", a.provider.Name()).Msg("LLM call failed, using heuristic summary")
		return heuristicSummary(cleaned)
	}

	fields, ok := loadJSONFields(raw)
	if !ok {
		a.logger.Warn().Str("provider", a.provider.Name()).Msg("LLM returned unstructured content, using heuristic summary")
		return heuristicSummary(cleaned)
	}

	analysis := PaperAnalysis{
		Innovation: strings.TrimSpace(fields["innovation"]),
		Method:     strings.TrimSpace(fields["method"]),
		Conclusion: strings.TrimSpace(fields["conclusion"]),
	}

	// Backfill missing fields from the heuristic so callers never see an
	// empty analysis alongside a successful provider reply.
	paragraphs := splitParagraphs(cleaned)
	for _, section := range sectionPatterns {
		value := analysis.field(section.name)
		if value != "" {
			continue
		}
		paragraph := findParagraph(paragraphs, section.keywords)
		fallback := takeSentences(paragraph, section.maxSentences)
		if fallback == "" {
			fallback = "no information"
		}
		analysis.setField(section.name, fallback)
	}

	analysis.Summary = firstNonEmpty(analysis.Conclusion, analysis.Method, analysis.Innovation)
	return analysis
}

func (p *PaperAnalysis) field(name string) string {
	switch name {
	case "innovation":
		return p.Innovation
	case "method":
		return p.Method
	case "conclusion":
		return p.Conclusion
	}
	return ""
}

func (p *PaperAnalysis) setField(name, value string) {
	switch name {
	case "innovation":
		p.Innovation = value
	case "method":
		p.Method = value
	case "conclusion":
		p.Conclusion = value
	}
}

var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// loadJSONFields extracts a JSON object from a completion that may carry
// prose or code fences around it.
func loadJSONFields(raw string) (map[string]string, bool) {
	block := raw
	if m := jsonBlockPattern.FindString(raw); m != "" {
		block = m
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil, false
	}
	fields := make(map[string]string, len(parsed))
	for key, value := range parsed {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case float64:
			fields[key] = fmt.Sprintf("%v", v)
		}
	}
	return fields, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
