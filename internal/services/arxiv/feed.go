package arxiv

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
)

// arXiv identifiers embed a 4-digit year-month block, a dot, and a 4-5 digit
// sequence, optionally suffixed with a version tag.
var arxivIDPattern = regexp.MustCompile(`(\d{4}\.\d{4,5})(v\d+)?`)

// atomFeed mirrors the subset of the Atom response the crawler consumes.
// The arxiv extension namespace is present in responses but nothing in it is
// needed beyond what the default namespace carries.
type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Published string       `xml:"published"`
	Updated   string       `xml:"updated"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

// ExtractIDs pulls the base identifier and the versioned identifier out of a
// raw id string. The version defaults to v1 when absent.
func ExtractIDs(identifier string) (baseID, idWithVersion string, err error) {
	m := arxivIDPattern.FindStringSubmatch(identifier)
	if m == nil {
		return "", "", fmt.Errorf("unable to parse arXiv ID from %q", identifier)
	}
	baseID = m[1]
	version := m[2]
	if version == "" {
		version = "v1"
	}
	return baseID, baseID + version, nil
}

// ParseFeed decodes an Atom search response into entries, in document order.
// Malformed entries (unparseable identifier or published timestamp) are
// skipped with a warning; they never abort the batch.
func ParseFeed(data []byte, logger arbor.ILogger) ([]models.Entry, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse Atom feed: %w", err)
	}

	entries := make([]models.Entry, 0, len(feed.Entries))
	for _, raw := range feed.Entries {
		if raw.ID == "" {
			continue
		}
		baseID, idWithVersion, err := ExtractIDs(raw.ID)
		if err != nil {
			logger.Warn().Str("id", raw.ID).Msg("Skipping entry with unparseable identifier")
			continue
		}

		published, err := parseTimestamp(raw.Published)
		if err != nil {
			logger.Warn().
				Str("id", idWithVersion).
				Str("published", raw.Published).
				Msg("Skipping entry with invalid published timestamp")
			continue
		}
		updated, err := parseTimestamp(raw.Updated)
		if err != nil {
			updated = published
		}

		authors := make([]string, 0, len(raw.Authors))
		for _, a := range raw.Authors {
			authors = append(authors, strings.TrimSpace(a.Name))
		}

		pdfURL := ""
		for _, link := range raw.Links {
			if link.Type == "application/pdf" {
				pdfURL = link.Href
				break
			}
		}
		if pdfURL == "" {
			pdfURL = fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", idWithVersion)
		}

		entries = append(entries, models.Entry{
			BaseID:        baseID,
			IDWithVersion: idWithVersion,
			Title:         strings.TrimSpace(raw.Title),
			Authors:       authors,
			Published:     published,
			Updated:       updated,
			PDFURL:        pdfURL,
		})
	}

	return entries, nil
}

// parseTimestamp parses an ISO-8601 timestamp, treating a trailing "Z" as
// UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339, s)
}
