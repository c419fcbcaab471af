// Package config handles application configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Database   DatabaseConfig  `yaml:"database"`
	Storage    StorageConfig   `yaml:"storage"`
	Vision     VisionConfig    `yaml:"vision"`
	Scoring    ScoringConfig   `yaml:"scoring"`
	RateLimits RateLimitConfig `yaml:"rate_limits"`
	Logging    LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	APIToken string `yaml:"api_token"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig configures the S3-compatible object store (AWS, R2, MinIO)
// that receives stamped artifacts.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

type VisionConfig struct {
	Provider string   `yaml:"provider"` // openai
	Model    string   `yaml:"model"`
	APIKey   string   `yaml:"api_key"`
	Timeout  Duration `yaml:"timeout"`
	Retries  int      `yaml:"retries"`
}

// Duration wraps time.Duration so YAML values like "20s" parse naturally.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ScoringConfig holds the trust-score thresholds and similarity parameters.
type ScoringConfig struct {
	AutoApproveThreshold int `yaml:"auto_approve_threshold"`
	HumanReviewThreshold int `yaml:"human_review_threshold"`
	SimilarityThreshold  int `yaml:"similarity_threshold"`
	PriorHashWindow      int `yaml:"prior_hash_window"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"default_requests_per_minute"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/attest.db",
		},
		Storage: StorageConfig{
			Region: "auto",
			Bucket: "evidence",
			UseSSL: true,
		},
		Vision: VisionConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  Duration(20 * time.Second),
			Retries:  1,
		},
		Scoring: ScoringConfig{
			AutoApproveThreshold: 80,
			HumanReviewThreshold: 60,
			SimilarityThreshold:  6,
			PriorHashWindow:      10,
		},
		RateLimits: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run with --generate-config to create one)", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content := interpolateEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GenerateSample creates a sample configuration file.
func GenerateSample(path string) error {
	sample := `# Attest Configuration
# See documentation for all options

server:
  port: 8080
  api_token: ${ATTEST_API_TOKEN}

database:
  path: ./data/attest.db

storage:
  # S3-compatible object store for stamped evidence (AWS S3, Cloudflare R2, MinIO)
  endpoint: ${S3_ENDPOINT}
  region: auto
  bucket: evidence
  access_key: ${S3_ACCESS_KEY}
  secret_key: ${S3_SECRET_KEY}
  use_ssl: true
  # public_url: https://evidence.example.org

vision:
  provider: openai
  model: gpt-4o-mini
  api_key: ${OPENAI_API_KEY}
  timeout: 20s
  retries: 1

scoring:
  auto_approve_threshold: 80   # score >= this -> AUTHENTIC when no model verdict
  human_review_threshold: 60   # score >= this -> SUSPICIOUS when no model verdict
  similarity_threshold: 6      # max Hamming distance over the 64-bit perceptual hash
  prior_hash_window: 10        # prior submissions consulted for duplicates

rate_limits:
  default_requests_per_minute: 60

logging:
  level: info  # debug, info, warn, error
  format: json # json or text
`
	return os.WriteFile(path, []byte(sample), 0644)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Vision.Provider != "openai" && c.Vision.Provider != "none" {
		return fmt.Errorf("unsupported vision provider: %s", c.Vision.Provider)
	}
	if c.Vision.Provider == "openai" && c.Vision.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if c.Vision.Timeout <= 0 {
		return fmt.Errorf("vision timeout must be positive")
	}

	if c.Scoring.AutoApproveThreshold < c.Scoring.HumanReviewThreshold {
		return fmt.Errorf("auto_approve_threshold (%d) must be >= human_review_threshold (%d)",
			c.Scoring.AutoApproveThreshold, c.Scoring.HumanReviewThreshold)
	}
	if c.Scoring.SimilarityThreshold < 0 || c.Scoring.SimilarityThreshold > 64 {
		return fmt.Errorf("similarity_threshold must be within [0,64]: %d", c.Scoring.SimilarityThreshold)
	}
	if c.Scoring.PriorHashWindow < 1 {
		return fmt.Errorf("prior_hash_window must be at least 1: %d", c.Scoring.PriorHashWindow)
	}

	return nil
}

// interpolateEnvVars replaces ${VAR_NAME} with environment variable values.
func interpolateEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match // Keep original if not set
	})
}
