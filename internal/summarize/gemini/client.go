// Package gemini completes digest prompts with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

type Config struct {
	APIKey      string
	Model       string // default gemini-2.0-flash
	Temperature float32
}

type Client struct {
	client *genai.Client
	cfg    Config
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, cfg: cfg, logger: logger.With("provider", "gemini", "model", cfg.Model)}, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}
	result, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("empty response from Gemini")
	}
	c.logger.Debug("gemini.complete.ok", "bytes", len(text))
	return text, nil
}
