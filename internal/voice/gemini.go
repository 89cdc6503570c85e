package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"

	"github.com/ent0n29/voxturn/internal/session"
)

const geminiProvider = "gemini"

type GeminiConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
}

// GeminiGenerator produces replies through the any-llm Gemini backend.
// A generator whose backend failed to initialize stays usable and reports
// every call as unavailable, so the service can still start and fall back.
type GeminiGenerator struct {
	cfg     GeminiConfig
	backend anyllmlib.Provider
	initErr error
}

func NewGeminiGenerator(cfg GeminiConfig) *GeminiGenerator {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	g := &GeminiGenerator{cfg: cfg}
	if !apiKeyConfigured(cfg.APIKey) {
		g.initErr = errors.New("api key not configured")
		return g
	}
	backend, err := gemini.New(anyllmlib.WithAPIKey(cfg.APIKey))
	if err != nil {
		g.initErr = fmt.Errorf("create gemini backend: %w", err)
		return g
	}
	g.backend = backend
	return g
}

// Ready reports why the generator cannot serve requests, if it cannot.
func (g *GeminiGenerator) Ready() error { return g.initErr }

func (g *GeminiGenerator) Generate(ctx context.Context, history []session.Turn) (string, error) {
	if g.initErr != nil {
		return "", stageErr(StageGeneration, CauseUnavailable, geminiProvider, g.initErr)
	}
	params, err := g.buildParams(history)
	if err != nil {
		return "", stageErr(StageGeneration, CauseRejected, geminiProvider, err)
	}

	resp, err := g.backend.Completion(ctx, params)
	if err != nil {
		return "", asStageError(StageGeneration, geminiProvider, fmt.Errorf("completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", stageErr(StageGeneration, CauseMalformed, geminiProvider, errors.New("empty choices in response"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if text == "" {
		return "", stageErr(StageGeneration, CauseMalformed, geminiProvider, errors.New("empty reply text"))
	}
	return text, nil
}

func (g *GeminiGenerator) buildParams(history []session.Turn) (anyllmlib.CompletionParams, error) {
	var messages []anyllmlib.Message
	if prompt := strings.TrimSpace(g.cfg.SystemPrompt); prompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: prompt,
		})
	}
	hasUser := false
	for _, t := range history {
		switch t.Role {
		case session.RoleUser:
			hasUser = true
		case session.RoleAssistant:
		default:
			return anyllmlib.CompletionParams{}, fmt.Errorf("unsupported role %q", t.Role)
		}
		messages = append(messages, anyllmlib.Message{
			Role:    string(t.Role),
			Content: t.Text,
		})
	}
	if !hasUser {
		return anyllmlib.CompletionParams{}, errors.New("history has no user turn")
	}
	return anyllmlib.CompletionParams{
		Model:    g.cfg.Model,
		Messages: messages,
	}, nil
}
