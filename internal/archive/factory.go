package archive

import (
	"context"
	"strings"
)

// New creates a postgres-backed archive when configured, otherwise a no-op.
func New(ctx context.Context, databaseURL string) (Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return Nop{}, nil
	}
	return NewPostgres(ctx, databaseURL)
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(context.Context, TurnRecord) error { return nil }
func (Nop) Ping(context.Context) error               { return nil }
func (Nop) Close() error                             { return nil }
