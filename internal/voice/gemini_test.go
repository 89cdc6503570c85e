package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/ent0n29/voxturn/internal/session"
)

func TestGeminiBuildParams(t *testing.T) {
	g := &GeminiGenerator{cfg: GeminiConfig{Model: "gemini-test", SystemPrompt: "Be brief."}}
	history := []session.Turn{
		{Role: session.RoleUser, Text: "Hello"},
		{Role: session.RoleAssistant, Text: "Hi!"},
		{Role: session.RoleUser, Text: "How are you?"},
	}

	params, err := g.buildParams(history)
	if err != nil {
		t.Fatalf("buildParams() error = %v", err)
	}
	if params.Model != "gemini-test" {
		t.Fatalf("Model = %q", params.Model)
	}
	if len(params.Messages) != 4 {
		t.Fatalf("len(Messages) = %d, want 4", len(params.Messages))
	}
	if params.Messages[0].Role != "system" || params.Messages[0].ContentString() != "Be brief." {
		t.Fatalf("Messages[0] = %+v, want system prompt", params.Messages[0])
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	for i, want := range wantRoles {
		if params.Messages[i].Role != want {
			t.Fatalf("Messages[%d].Role = %q, want %q", i, params.Messages[i].Role, want)
		}
	}
	if params.Messages[3].ContentString() != "How are you?" {
		t.Fatalf("last message = %q", params.Messages[3].ContentString())
	}
}

func TestGeminiBuildParamsRejectsHistoryWithoutUser(t *testing.T) {
	g := &GeminiGenerator{cfg: GeminiConfig{Model: "m"}}
	for name, history := range map[string][]session.Turn{
		"empty":          nil,
		"assistant only": {{Role: session.RoleAssistant, Text: "hi"}},
	} {
		if _, err := g.buildParams(history); err == nil {
			t.Fatalf("%s: buildParams() expected error", name)
		}
	}
}

func TestGeminiWithoutKeyIsUnavailable(t *testing.T) {
	g := NewGeminiGenerator(GeminiConfig{})
	if g.Ready() == nil {
		t.Fatalf("Ready() = nil, want error without api key")
	}
	_, err := g.Generate(context.Background(), []session.Turn{{Role: session.RoleUser, Text: "hi"}})
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageGeneration || se.Cause != CauseUnavailable {
		t.Fatalf("Generate() error = %v, want generation/unavailable", err)
	}
}
