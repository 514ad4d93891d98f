// Package ai provides a narrow client for the Gemini generation service.
// This is part of the platform layer: callers define the response schema and
// are responsible for validating what comes back. The model's output is
// always treated as a proposal, never an authority.
package ai

import (
	"context"
	"fmt"
	"time"

	"dormdesk_backend/platform/config"

	"google.golang.org/genai"
)

// Client wraps the Gemini API for structured JSON generation.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient constructs a generation client from configuration.
func NewClient(ctx context.Context, cfg config.GenerationConfig) (*Client, error) {
	if cfg.GetGeminiAPIKey() == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:  gc,
		model:   cfg.GetGeminiModel(),
		timeout: cfg.GetGenerationTimeout(),
	}, nil
}

// GenerateJSON sends the conversation contents to the model and returns the
// raw JSON text of the response. The call is bounded by the configured
// timeout; callers must treat a timeout like any other generation failure.
func (c *Client) GenerateJSON(ctx context.Context, systemInstruction string, contents []*genai.Content, schema *genai.Schema) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if systemInstruction != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generation returned empty response")
	}

	return text, nil
}
