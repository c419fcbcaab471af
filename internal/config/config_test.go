package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 80, cfg.Scoring.AutoApproveThreshold)
	assert.Equal(t, 60, cfg.Scoring.HumanReviewThreshold)
	assert.Equal(t, 6, cfg.Scoring.SimilarityThreshold)
	assert.Equal(t, 10, cfg.Scoring.PriorHashWindow)
	assert.Equal(t, 20*time.Second, cfg.Vision.Timeout.Std())
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	t.Setenv("TEST_VISION_KEY", "sk-test-123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
vision:
  provider: openai
  api_key: ${TEST_VISION_KEY}
scoring:
  auto_approve_threshold: 85
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-test-123", cfg.Vision.APIKey)
	assert.Equal(t, 85, cfg.Scoring.AutoApproveThreshold)
	// Untouched sections keep defaults.
	assert.Equal(t, 60, cfg.Scoring.HumanReviewThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Vision.APIKey = "sk-test"
		return cfg
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Vision.Provider = "palantir"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Vision.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Vision.Provider = "none"
	cfg.Vision.APIKey = ""
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Scoring.AutoApproveThreshold = 50 // below human review
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scoring.SimilarityThreshold = 65
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scoring.PriorHashWindow = 0
	assert.Error(t, cfg.Validate())
}

func TestGenerateSampleRoundTrips(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-sample")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, GenerateSample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-sample", cfg.Vision.APIKey)
	assert.Equal(t, 6, cfg.Scoring.SimilarityThreshold)
}
