// Package vision provides a pluggable interface for visual-authenticity model providers.
package vision

import (
	"context"
	"fmt"

	"github.com/evidencecheck/attest/internal/config"
)

// Provider defines the interface for visual-authenticity model backends.
// Implementations may be slow or unavailable; callers never assume availability.
type Provider interface {
	// Analyze submits image bytes plus a serialized context block and returns
	// the model's raw text response.
	Analyze(ctx context.Context, imageData []byte, contextBlob string) (string, error)

	// Name returns the provider name.
	Name() string
}

// NewProvider creates a new vision provider based on configuration.
func NewProvider(cfg *config.VisionConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported vision provider: %s", cfg.Provider)
	}
}
