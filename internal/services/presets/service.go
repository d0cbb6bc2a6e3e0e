// Package presets loads named keyword lists from YAML files so common
// crawls can be launched by name.
package presets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"
)

// Preset is a named keyword list with optional crawl overrides.
type Preset struct {
	Name       string   `yaml:"name" json:"name"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
	YearRange  string   `yaml:"year_range" json:"year_range,omitempty"`
	MaxResults int      `yaml:"max_results" json:"max_results,omitempty"`
}

// Service reads presets from a directory of *.yaml files. Files are re-read
// on every call so edits take effect without a restart.
type Service struct {
	dir    string
	logger arbor.ILogger
}

// NewService creates a preset loader over the given directory.
func NewService(dir string, logger arbor.ILogger) *Service {
	return &Service{dir: dir, logger: logger}
}

// List returns all valid presets sorted by name. Unreadable or invalid files
// are logged and skipped.
func (s *Service) List() []Preset {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.yaml"))
	if err != nil {
		return nil
	}
	more, err := filepath.Glob(filepath.Join(s.dir, "*.yml"))
	if err == nil {
		paths = append(paths, more...)
	}

	presets := make([]Preset, 0, len(paths))
	for _, path := range paths {
		preset, err := s.loadFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("Skipping invalid preset file")
			continue
		}
		presets = append(presets, preset)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets
}

// Get returns the preset with the given name (case-insensitive).
func (s *Service) Get(name string) (Preset, error) {
	for _, preset := range s.List() {
		if strings.EqualFold(preset.Name, name) {
			return preset, nil
		}
	}
	return Preset{}, fmt.Errorf("preset %q not found in %s", name, s.dir)
}

func (s *Service) loadFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("failed to read preset: %w", err)
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return Preset{}, fmt.Errorf("failed to parse preset: %w", err)
	}

	if preset.Name == "" {
		preset.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	keywords := make([]string, 0, len(preset.Keywords))
	for _, keyword := range preset.Keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	if len(keywords) == 0 {
		return Preset{}, fmt.Errorf("preset has no keywords")
	}
	preset.Keywords = keywords
	return preset, nil
}
