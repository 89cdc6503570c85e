package archive

import (
	"context"
	"time"

	"github.com/ent0n29/voxturn/internal/policy"
	"github.com/ent0n29/voxturn/internal/session"
)

// TurnRecord is one archived conversational turn with PII already masked.
type TurnRecord struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Archive is a write-only sink for conversation turns. Nothing is ever read
// back into a live session.
type Archive interface {
	Record(ctx context.Context, record TurnRecord) error
	Ping(ctx context.Context) error
	Close() error
}

// FromTurn builds a record for turn, redacting common PII from its text.
func FromTurn(sessionID string, turn session.Turn) TurnRecord {
	content, changed := policy.RedactPII(turn.Text)
	return TurnRecord{
		ID:          turn.ID,
		SessionID:   sessionID,
		Role:        string(turn.Role),
		Content:     content,
		PIIRedacted: changed,
		CreatedAt:   turn.CreatedAt,
	}
}
