// SPDX-License-Identifier: Apache-2.0

// Package planner turns free-form requests into executable plans by asking
// a language model for a structured document.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/plan"
)

type (
	// Generator produces a validated plan for a request.
	Generator interface {
		GeneratePlan(ctx context.Context, request string) (*plan.Plan, error)
	}

	// LLMPlanner prompts a model and decodes its answer into a plan.
	LLMPlanner struct {
		model  llms.Model
		prompt string
		logger *slog.Logger
	}

	// InvalidPlanError reports a document that parsed as JSON but violates
	// the plan schema.
	InvalidPlanError struct {
		Issues []string
	}
)

var (
	// ErrNoPlan means the model answered without a "plan" key
	ErrNoPlan = errors.New("planner response contains no plan")

	ErrUnknownProvider = errors.New("unknown planner provider")
	ErrNoAPIKey        = errors.New("planner provider requires an API key")
)

var _ Generator = (*LLMPlanner)(nil)

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("planner produced an invalid plan: %s", strings.Join(e.Issues, "; "))
}

// NewModel builds the llms.Model for the configured provider. The empty
// provider means ollama, which needs no credentials.
func NewModel(cfg config.Planner) (llms.Model, error) {
	switch cfg.Provider {
	case "ollama", "":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.OllamaURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.OllamaURL))
		}
		return ollama.New(opts...)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, ErrNoAPIKey
		}
		return openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// NewLLMPlanner wraps a model with an agent's planning prompt
func NewLLMPlanner(model llms.Model, prompt string, logger *slog.Logger) *LLMPlanner {
	if logger == nil {
		logger = slog.Default()
	}

	return &LLMPlanner{
		model:  model,
		prompt: prompt,
		logger: logger,
	}
}

// GeneratePlan sends the request to the model and decodes the answer. The
// call is pinned to a low temperature and JSON output; plans are documents,
// not prose.
func (p *LLMPlanner) GeneratePlan(ctx context.Context, request string) (*plan.Plan, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(p.prompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(request)},
		},
	}

	resp, err := p.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0.1),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("error generating plan: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("planner returned no choices")
	}

	raw := ExtractJSON(resp.Choices[0].Content)
	p.logger.Debug("planner responded", slog.Int("bytes", len(raw)))

	switch decoded := plan.Decode(raw).(type) {
	case plan.ValidPlan:
		return decoded.Plan, nil
	case plan.MissingSteps:
		return nil, ErrNoPlan
	case plan.InvalidPlan:
		return nil, &InvalidPlanError{Issues: decoded.Issues}
	case plan.UpstreamError:
		return nil, fmt.Errorf("planner error: %s", decoded.Message)
	default:
		return nil, fmt.Errorf("unhandled decode result %T", decoded)
	}
}

// ExtractJSON strips markdown fences from a model answer. Models in JSON
// mode still occasionally wrap the document in a code block.
func ExtractJSON(content string) []byte {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}

	return []byte(strings.TrimSpace(content))
}
