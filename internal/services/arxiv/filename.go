package arxiv

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	pdfExtension   = ".pdf"
	ellipsisMarker = "…"
	maxSlugWords   = 8
)

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
	hyphenRun            = regexp.MustCompile(`-+`)
	nonWordChars         = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
)

// SanitizeComponent makes a filename component safe on common filesystems:
// illegal and control characters stripped, whitespace runs collapsed to a
// single hyphen, hyphen runs collapsed, leading/trailing "-._" trimmed.
func SanitizeComponent(value string) string {
	value = strings.TrimSpace(value)
	value = invalidFilenameChars.ReplaceAllString(value, "")
	value = whitespaceRun.ReplaceAllString(value, "-")
	value = hyphenRun.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-._")
	if value == "" {
		return "unknown"
	}
	return value
}

// SlugifyTitle lowercases the title, drops punctuation, and keeps at most
// the first eight words joined by hyphens.
func SlugifyTitle(title string) string {
	cleaned := strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(title)
	cleaned = strings.ToLower(cleaned)
	cleaned = nonWordChars.ReplaceAllString(cleaned, " ")

	words := strings.Fields(cleaned)
	if len(words) > maxSlugWords {
		words = words[:maxSlugWords]
	}
	if len(words) == 0 {
		return SanitizeComponent("untitled")
	}
	return SanitizeComponent(strings.Join(words, "-"))
}

// enforceLength bounds the base name so that base + ".pdf" fits in limit,
// appending an ellipsis marker when truncation happens.
func enforceLength(baseName string, limit int) string {
	if len([]rune(baseName)) <= limit-len(pdfExtension) {
		return baseName
	}
	allowed := limit - len(pdfExtension) - utf8.RuneCountInString(ellipsisMarker)
	if allowed <= 0 {
		return ellipsisMarker
	}
	runes := []rune(baseName)
	truncated := strings.TrimRight(string(runes[:allowed]), "-._")
	if truncated == "" {
		truncated = string(runes[:allowed])
	}
	return truncated + ellipsisMarker
}

// BuildFileName derives the deterministic published name for a paper:
// "{year}-{id}-{author}-{slug}.pdf", bounded to maxLength characters
// including the extension.
func BuildFileName(year int, idWithVersion, firstAuthor, title string, maxLength int) string {
	baseName := fmt.Sprintf("%d-%s-%s-%s",
		year,
		SanitizeComponent(idWithVersion),
		SanitizeComponent(firstAuthor),
		SlugifyTitle(title),
	)
	return enforceLength(baseName, maxLength) + pdfExtension
}

// FindSiblingVersions returns every published file in dir whose name marks
// it as a version of baseID, i.e. matching "*-{baseID}v*.pdf".
func FindSiblingVersions(dir, baseID string) ([]string, error) {
	pattern := filepath.Join(dir, "*-"+baseID+"v*"+pdfExtension)
	return filepath.Glob(pattern)
}
