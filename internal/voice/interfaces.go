package voice

import (
	"context"

	"github.com/ent0n29/voxturn/internal/session"
)

// Transcriber turns one recorded utterance into text.
// It returns ErrEmptySpeech when the audio holds no recognizable words.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Generator produces the assistant's next reply from the full ordered history.
type Generator interface {
	Generate(ctx context.Context, history []session.Turn) (string, error)
}

// Synthesizer renders text as speech and returns a reference to the audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (string, error)
}
