// Package screening runs an advisory LLM review over proposed questions.
// Its verdicts are stored for moderators and never change a submission's
// status.
package screening

import (
	"context"
	"fmt"

	"github.com/truthbyte/backend/internal/config"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

type Screener struct {
	llm   LLMClient
	model string
	log   *zap.Logger
}

func NewScreener(llm LLMClient, model string, log *zap.Logger) *Screener {
	return &Screener{llm: llm, model: model, log: log.Named("screening")}
}

// New builds a Screener for the configured provider. It returns nil when
// screening is off.
func New(cfg config.ScreeningConfig, log *zap.Logger) (*Screener, error) {
	switch cfg.Provider {
	case "", "off":
		return nil, nil
	case "mock":
		log.Info("screening using mock client")
		return NewScreener(NewMockClient(), "mock", log), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("screening provider anthropic requires an API key")
		}
		log.Info("screening using Anthropic API", zap.String("model", cfg.Model))
		return NewScreener(NewAPIClient(cfg.APIKey, cfg.Model, log.Named("anthropic")), cfg.Model, log), nil
	default:
		return nil, fmt.Errorf("unknown screening provider %q", cfg.Provider)
	}
}

func (s *Screener) ModelName() string {
	return s.model
}

// Screen asks the model for a recommendation on sub.
func (s *Screener) Screen(ctx context.Context, sub models.Submission) (*models.ScreeningVerdict, error) {
	resp, err := s.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(sub))
	if err != nil {
		return nil, fmt.Errorf("screen submission %s: %w", sub.ID, err)
	}
	verdict, err := ParseVerdict(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse screening response: %w", err)
	}
	s.log.Info("submission screened",
		zap.String("submission_id", sub.ID),
		zap.String("recommendation", verdict.Recommendation),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("output_tokens", resp.OutputTokens))
	return verdict, nil
}
