package voice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestStageErrorUnwrap(t *testing.T) {
	root := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", stageErr(StageSynthesis, CauseRejected, "murf", root))

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("errors.As failed for %v", err)
	}
	if !errors.Is(err, root) {
		t.Fatalf("errors.Is(root) = false")
	}
	if !strings.Contains(se.Error(), "synthesis rejected (murf)") {
		t.Fatalf("Error() = %q", se.Error())
	}
}

func TestAsStageError(t *testing.T) {
	if se := asStageError(StageGeneration, "x", context.DeadlineExceeded); se.Cause != CauseTimeout {
		t.Fatalf("deadline cause = %q, want timeout", se.Cause)
	}
	if se := asStageError(StageGeneration, "x", errors.New("eof")); se.Cause != CauseUnavailable {
		t.Fatalf("plain error cause = %q, want unavailable", se.Cause)
	}
	orig := stageErr(StageGeneration, CauseMalformed, "x", errors.New("bad"))
	if se := asStageError(StageGeneration, "", orig); se != orig {
		t.Fatalf("asStageError did not keep matching StageError")
	}
	if se := asStageError(StageSynthesis, "", orig); se.Stage != StageSynthesis {
		t.Fatalf("Stage = %q, want synthesis", se.Stage)
	}
}

func TestCauseForHTTPStatus(t *testing.T) {
	cases := map[int]Cause{
		http.StatusBadRequest:          CauseRejected,
		http.StatusUnauthorized:        CauseRejected,
		http.StatusTooManyRequests:     CauseUnavailable,
		http.StatusServiceUnavailable:  CauseUnavailable,
		http.StatusInternalServerError: CauseUnavailable,
	}
	for code, want := range cases {
		if got := causeForHTTPStatus(code); got != want {
			t.Fatalf("causeForHTTPStatus(%d) = %q, want %q", code, got, want)
		}
	}
}
