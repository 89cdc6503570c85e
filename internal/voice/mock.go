package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/voxturn/internal/session"
)

// MockAudioURL is served by the HTTP layer as a short acknowledgement chime.
const MockAudioURL = "/static/ack.wav"

// MockTranscriber is an offline transcriber used when PROVIDER_MODE=mock.
// Audio made only of zero bytes counts as silence.
type MockTranscriber struct{}

func (MockTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", asStageError(StageTranscription, "mock", err)
	}
	if len(audio) == 0 {
		return "", stageErr(StageTranscription, CauseRejected, "mock", errors.New("audio is empty"))
	}
	for _, b := range audio {
		if b != 0 {
			return fmt.Sprintf("simulated voice input of %d bytes", len(audio)), nil
		}
	}
	return "", ErrEmptySpeech
}

// MockGenerator echoes the latest user turn and recalls the one before it.
type MockGenerator struct{}

func (MockGenerator) Generate(ctx context.Context, history []session.Turn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", asStageError(StageGeneration, "mock", err)
	}
	var users []string
	for _, t := range history {
		if t.Role == session.RoleUser {
			users = append(users, t.Text)
		}
	}
	if len(users) == 0 {
		return "", stageErr(StageGeneration, CauseRejected, "mock", errors.New("history has no user turn"))
	}
	reply := fmt.Sprintf("I heard you say: %s.", strings.TrimSpace(users[len(users)-1]))
	if len(users) > 1 {
		reply += fmt.Sprintf(" Before that you said: %s.", strings.TrimSpace(users[len(users)-2]))
	}
	return reply, nil
}

// MockSynthesizer returns a fixed locally served clip for any text.
type MockSynthesizer struct {
	AudioURL string
}

func (m MockSynthesizer) Synthesize(ctx context.Context, text, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", asStageError(StageSynthesis, "mock", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", stageErr(StageSynthesis, CauseRejected, "mock", errors.New("text is empty"))
	}
	if m.AudioURL != "" {
		return m.AudioURL, nil
	}
	return MockAudioURL, nil
}
