package voice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ent0n29/voxturn/internal/session"
)

func TestMockTranscriber(t *testing.T) {
	var m MockTranscriber
	if _, err := m.Transcribe(context.Background(), make([]byte, 16)); !errors.Is(err, ErrEmptySpeech) {
		t.Fatalf("silent audio error = %v, want ErrEmptySpeech", err)
	}
	text, err := m.Transcribe(context.Background(), []byte("RIFF"))
	if err != nil || text == "" {
		t.Fatalf("Transcribe() = %q, %v", text, err)
	}
	if _, err := m.Transcribe(context.Background(), nil); err == nil {
		t.Fatalf("empty audio expected error")
	}
}

func TestMockGeneratorRecallsEarlierTurn(t *testing.T) {
	var m MockGenerator
	reply, err := m.Generate(context.Background(), []session.Turn{
		{Role: session.RoleUser, Text: "first"},
		{Role: session.RoleAssistant, Text: "ok"},
		{Role: session.RoleUser, Text: "second"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(reply, "second") || !strings.Contains(reply, "first") {
		t.Fatalf("reply = %q, want both user turns mentioned", reply)
	}
	if _, err := m.Generate(context.Background(), nil); err == nil {
		t.Fatalf("empty history expected error")
	}
}

func TestMockSynthesizer(t *testing.T) {
	url, err := MockSynthesizer{}.Synthesize(context.Background(), "hi", "v")
	if err != nil || url != MockAudioURL {
		t.Fatalf("Synthesize() = %q, %v", url, err)
	}
	if _, err := (MockSynthesizer{}).Synthesize(context.Background(), "", "v"); err == nil {
		t.Fatalf("empty text expected error")
	}
}
