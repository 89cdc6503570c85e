package voice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ent0n29/voxturn/internal/reliability"
)

// ErrEmptySpeech reports that transcription found no speech. It is a normal
// outcome, not a provider failure.
var ErrEmptySpeech = errors.New("no speech detected")

type Stage string

const (
	StageTranscription Stage = "transcription"
	StageGeneration    Stage = "generation"
	StageSynthesis     Stage = "synthesis"
)

type Cause string

const (
	CauseUnavailable Cause = "unavailable"
	CauseRejected    Cause = "rejected"
	CauseMalformed   Cause = "malformed"
	CauseTimeout     Cause = "timeout"
)

// StageError is the failure kind returned by every client call.
type StageError struct {
	Stage    Stage
	Cause    Cause
	Provider string
	Err      error
}

func (e *StageError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Cause, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Stage, e.Cause, e.Provider, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, cause Cause, provider string, err error) *StageError {
	return &StageError{Stage: stage, Cause: cause, Provider: provider, Err: err}
}

// asStageError normalizes err into a StageError for stage. Context deadlines
// become timeouts; anything unrecognized is treated as the remote being unavailable.
func asStageError(stage Stage, provider string, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) && se.Stage == stage {
		return se
	}
	cause := CauseUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		cause = CauseTimeout
	}
	return stageErr(stage, cause, provider, err)
}

func causeForHTTPStatus(code int) Cause {
	switch {
	case reliability.IsRetryableHTTPStatus(code):
		return CauseUnavailable
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		return CauseRejected
	default:
		return CauseUnavailable
	}
}
