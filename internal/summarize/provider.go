package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/summarize/gemini"
	"github.com/joseph-ayodele/blotter-tracker/internal/summarize/openai"
)

// NewProvider builds the configured model client. Provider "none" returns
// nil, which makes the service write fallback digests.
func NewProvider(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "gemini":
		model := cfg.Model
		if strings.HasPrefix(model, "gpt-") {
			model = ""
		}
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("llm provider %q: %w", cfg.Provider, common.ErrInvalidInput)
	}
}
