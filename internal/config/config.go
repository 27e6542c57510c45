// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Analyzer backend names.
const (
	BackendClaude    = "claude"
	BackendOpenAI    = "openai"
	BackendTesseract = "tesseract"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Host string `env:"SERVER_URL" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8900"`

	// Env is "dev" or anything else. It only selects the log format.
	Env      string `env:"ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RoutePrefix string `env:"ROUTE_PREFIX" envDefault:"/calculate"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	AnalysisTimeout time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"60s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"20971520"`
	MaxImagePixels  int           `env:"MAX_IMAGE_PIXELS" envDefault:"89478485"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Analyzer Analyzer `envPrefix:"ANALYZER_"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY,unset"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY,unset"`
}

// Analyzer selects and tunes the analysis backend.
type Analyzer struct {
	Backend   string `env:"BACKEND" envDefault:"tesseract"`
	Model     string `env:"MODEL"`
	MaxTokens int64  `env:"MAX_TOKENS" envDefault:"1024"`
	BaseURL   string `env:"BASE_URL"`

	// MaxDimension caps the longest image edge before upload or OCR.
	MaxDimension int `env:"MAX_DIMENSION" envDefault:"1568"`

	OCRLanguage    string `env:"OCR_LANGUAGE" envDefault:"eng"`
	TessdataPrefix string `env:"TESSDATA_PREFIX"`
	OCRConcurrency int    `env:"OCR_CONCURRENCY" envDefault:"2"`

	// MinConfidence is the OCR score below which a line is returned raw
	// instead of evaluated.
	MinConfidence float64 `env:"MIN_CONFIDENCE" envDefault:"0.2"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.RoutePrefix = strings.TrimRight(cfg.RoutePrefix, "/")
	cfg.Analyzer.Backend = strings.ToLower(strings.TrimSpace(cfg.Analyzer.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every inconsistent setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if !strings.HasPrefix(c.RoutePrefix, "/") {
		errs = append(errs, fmt.Errorf("ROUTE_PREFIX must start with '/', got %q", c.RoutePrefix))
	}
	if c.RateLimitRequests < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow))
	}
	if c.AnalysisTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_TIMEOUT must be positive, got %s", c.AnalysisTimeout))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	if c.MaxImagePixels <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels))
	}

	switch c.Analyzer.Backend {
	case BackendClaude:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the claude backend"))
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai backend"))
		}
	case BackendTesseract:
		if c.Analyzer.OCRConcurrency < 1 {
			errs = append(errs, fmt.Errorf("ANALYZER_OCR_CONCURRENCY must be positive, got %d", c.Analyzer.OCRConcurrency))
		}
		if c.Analyzer.MinConfidence < 0 || c.Analyzer.MinConfidence > 1 {
			errs = append(errs, fmt.Errorf("ANALYZER_MIN_CONFIDENCE must be between 0 and 1, got %g", c.Analyzer.MinConfidence))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ANALYZER_BACKEND %q (want %s, %s or %s)",
			c.Analyzer.Backend, BackendClaude, BackendOpenAI, BackendTesseract))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// HealthPath returns the liveness path under the route prefix.
func (c *Config) HealthPath() string {
	return c.RoutePrefix + "/health"
}
