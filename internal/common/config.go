package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Arxiv       ArxivConfig     `toml:"arxiv"`
	Storage     StorageConfig   `toml:"storage"`
	LLM         LLMConfig       `toml:"llm"`
	Presets     PresetsConfig   `toml:"presets"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port      int     `toml:"port" validate:"gt=0,lte=65535"`
	Host      string  `toml:"host"`
	RateLimit float64 `toml:"rate_limit"` // inbound requests per second, 0 disables
	RateBurst int     `toml:"rate_burst"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ArxivConfig controls search, pacing and download behaviour against the
// arXiv export API. Pacing defaults follow the API's politeness guidance.
type ArxivConfig struct {
	APIURL            string          `toml:"api_url" validate:"required,url"`
	UserAgent         string          `toml:"user_agent"`
	PDFDir            string          `toml:"pdf_dir" validate:"required"`
	PrefetchCap       int             `toml:"prefetch_cap" validate:"gt=0"`
	MinInterval       time.Duration   `toml:"min_interval"`
	JitterLow         time.Duration   `toml:"jitter_low"`
	JitterHigh        time.Duration   `toml:"jitter_high"`
	MaxRetries        int             `toml:"max_retries" validate:"gt=0"`
	RetryBackoff      []time.Duration `toml:"retry_backoff"`
	ConnectTimeout    time.Duration   `toml:"connect_timeout"`
	ReadTimeout       time.Duration   `toml:"read_timeout"`
	MinPDFSize        int64           `toml:"min_pdf_size"`
	MaxFilenameLength int             `toml:"max_filename_length" validate:"gte=16"`
	MaxResults        int             `toml:"max_results" validate:"gt=0"` // hard cap per request
	DefaultResults    int             `toml:"default_results" validate:"gt=0"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	Export string       `toml:"export"` // directory for generated reports
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LLMConfig struct {
	Provider    string  `toml:"provider"` // "claude", "gemini" or "heuristic"
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type PresetsConfig struct {
	Dir string `toml:"dir"` // directory containing keyword preset files (*.yaml)
}

type SchedulerConfig struct {
	Enabled   bool   `toml:"enabled"`
	Schedule  string `toml:"schedule"` // cron expression
	Preset    string `toml:"preset"`   // preset name to crawl on schedule
	YearRange string `toml:"year_range"`
}

// DefaultConfig returns the built-in defaults. File and environment values
// layer on top of these.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:      8080,
			Host:      "localhost",
			RateLimit: 10,
			RateBurst: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Arxiv: ArxivConfig{
			APIURL:            "https://export.arxiv.org/api/query",
			UserAgent:         fmt.Sprintf("colligo/%s (+https://github.com/ternarybob/colligo)", GetVersion()),
			PDFDir:            "./pdf_files",
			PrefetchCap:       100,
			MinInterval:       time.Second,
			JitterLow:         100 * time.Millisecond,
			JitterHigh:        300 * time.Millisecond,
			MaxRetries:        3,
			RetryBackoff:      []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second},
			ConnectTimeout:    10 * time.Second,
			ReadTimeout:       30 * time.Second,
			MinPDFSize:        10 * 1024,
			MaxFilenameLength: 120,
			MaxResults:        10,
			DefaultResults:    5,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/colligo.db"},
			Export: "./exports",
		},
		LLM: LLMConfig{
			Provider:    "heuristic",
			Timeout:     "60s",
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		Presets: PresetsConfig{Dir: "./presets"},
	}
}

// LoadFromFiles loads configuration from defaults, then each file in order
// (later files override earlier ones), then environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies COLLIGO_* environment variables over the loaded
// configuration. Only values that vary per deployment are exposed.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("COLLIGO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("COLLIGO_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("COLLIGO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("COLLIGO_PDF_DIR"); v != "" {
		config.Arxiv.PDFDir = v
	}
	if v := os.Getenv("COLLIGO_EXPORT_DIR"); v != "" {
		config.Storage.Export = v
	}
	if v := os.Getenv("COLLIGO_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

var validate = validator.New()

// Validate checks structural constraints plus the cross-field rules the
// validator tags cannot express.
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Arxiv.JitterHigh < config.Arxiv.JitterLow {
		return fmt.Errorf("invalid configuration: jitter_high %s is below jitter_low %s",
			config.Arxiv.JitterHigh, config.Arxiv.JitterLow)
	}
	if len(config.Arxiv.RetryBackoff) == 0 {
		return fmt.Errorf("invalid configuration: retry_backoff must contain at least one duration")
	}
	if config.Arxiv.DefaultResults > config.Arxiv.MaxResults {
		return fmt.Errorf("invalid configuration: default_results %d exceeds max_results %d",
			config.Arxiv.DefaultResults, config.Arxiv.MaxResults)
	}
	if config.Scheduler.Enabled && config.Scheduler.Schedule == "" {
		return fmt.Errorf("invalid configuration: scheduler enabled without a schedule")
	}
	return nil
}
