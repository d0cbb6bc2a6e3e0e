package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sectionPattern scores paragraphs by cue words to locate the part of a
// paper most likely to describe a section.
type sectionPattern struct {
	name         string
	keywords     []string
	maxSentences int
}

var sectionPatterns = []sectionPattern{
	{"innovation", []string{"innovation", "novel", "contribution", "breakthrough"}, 2},
	{"method", []string{"method", "approach", "architecture", "experiment"}, 2},
	{"conclusion", []string{"conclusion", "result", "finding", "future"}, 2},
}

var (
	sentenceBoundary = regexp.MustCompile(`(?:[.!?])\s+`)
	paragraphBreak   = regexp.MustCompile(`\n{2,}`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// heuristicSummary builds a structured summary without any LLM: the first
// paragraph's opening sentences become the overall summary, and each section
// is filled from the highest-scoring paragraph for its cue words.
func heuristicSummary(text string) PaperAnalysis {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		paragraphs = []string{text}
	}
	summary := takeSentences(paragraphs[0], 2)

	analysis := PaperAnalysis{Summary: summary}
	for _, section := range sectionPatterns {
		paragraph := findParagraph(paragraphs, section.keywords)
		if paragraph == "" {
			paragraph = summary
		}
		analysis.setField(section.name, takeSentences(paragraph, section.maxSentences))
	}
	return analysis
}

func splitParagraphs(text string) []string {
	raw := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// findParagraph returns the paragraph with the highest cue-word score,
// stopping early once two distinct cues match.
func findParagraph(paragraphs []string, keywords []string) string {
	best := ""
	bestScore := 0
	for _, paragraph := range paragraphs {
		lowered := strings.ToLower(paragraph)
		score := 0
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = paragraph
			bestScore = score
			if score >= 2 {
				break
			}
		}
	}
	return best
}

// takeSentences joins the first limit sentences of text, normalized to
// single spaces and bounded to 240 characters.
func takeSentences(text string, limit int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	sentences := sentenceBoundary.Split(text, -1)
	cleaned := make([]string, 0, limit)
	for _, sentence := range sentences {
		trimmed := whitespaceRun.ReplaceAllString(strings.TrimSpace(sentence), " ")
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
		if len(cleaned) >= limit {
			break
		}
	}
	return Truncate(strings.Join(cleaned, " "), 240)
}

// Truncate clips value to limit runes, replacing the final rune with an
// ellipsis when clipping happens.
func Truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

// SuggestKeywordsHeuristic derives up to limit search keywords from a free
// text description without an LLM.
var keywordSplit = regexp.MustCompile(`[^A-Za-z0-9+#]+`)

func SuggestKeywordsHeuristic(description string, limit int) []string {
	tokens := keywordSplit.Split(description, -1)
	keywords := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, token := range tokens {
		cleaned := strings.ToLower(strings.TrimSpace(token))
		if len(cleaned) < 3 || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		keywords = append(keywords, cleaned)
		if len(keywords) >= limit {
			break
		}
	}
	return keywords
}
