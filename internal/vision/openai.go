// Package vision provides the OpenAI implementation of the Provider interface.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/evidencecheck/attest/internal/config"
)

const systemPrompt = `You are an expert photographic evidence analyst for ecological restoration projects.

Examine the attached photo together with the submitted metadata and judge whether it is authentic field evidence.

Look for:
1. Digital manipulation artifacts (cloning, splicing, inpainting, AI generation)
2. Lighting and shadow consistency across the scene
3. Plausibility of the claimed outdoor/ecological setting
4. Consistency between the image content and the attached capture metadata

Respond with exactly three lines:
VERDICT: AUTHENTIC|SUSPICIOUS|FAKE
CONFIDENCE: <0-100>
REASONING: <one or two sentences>

Only respond with those three lines, no other text.`

// OpenAIProvider implements Provider using the OpenAI vision API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg *config.VisionConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Analyze submits the image and context block to the vision model.
func (p *OpenAIProvider) Analyze(ctx context.Context, imageData []byte, contextBlob string) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: contextBlob,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		MaxTokens:   512,
		Temperature: 0.0,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI vision call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
