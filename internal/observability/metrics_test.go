package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordTurnsAndFallbacks(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveTurn("completed")
	m.ObserveTurn("fallback")
	m.ObserveFallback("synthesis", "timeout")
	m.ObserveProviderError("murf", "timeout")
	m.ObserveStage("synthesis", 1500*time.Millisecond)

	if got := testutil.ToFloat64(m.Turns.WithLabelValues("completed")); got != 1 {
		t.Fatalf("turns{completed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("synthesis", "timeout")); got != 1 {
		t.Fatalf("fallbacks{synthesis,timeout} = %v, want 1", got)
	}

	snap := m.SnapshotTurnStages()
	if len(snap.Stages) != 1 || snap.Stages[0].LastMS != 1500 {
		t.Fatalf("stage snapshot = %+v, want one synthesis sample of 1500ms", snap.Stages)
	}
	var sawFallback bool
	for _, ind := range snap.Indicators {
		if ind.Name == "fallback_synthesis" && ind.Count == 1 {
			sawFallback = true
		}
	}
	if !sawFallback {
		t.Fatalf("indicators = %+v, want fallback_synthesis", snap.Indicators)
	}
}

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a := NewMetrics("iso")
	b := NewMetrics("iso")
	a.ObserveTurn("completed")
	if got := testutil.ToFloat64(b.Turns.WithLabelValues("completed")); got != 0 {
		t.Fatalf("second registry saw %v turns, want 0", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTurn("completed")
	m.ObserveStage("generation", time.Second)
	m.ObserveFallback("generation", "unavailable")
	m.SetSessions(3)
	if snap := m.SnapshotTurnStages(); len(snap.Stages) != 0 {
		t.Fatalf("nil metrics snapshot has %d stages", len(snap.Stages))
	}
}

func TestMetricsHandlerExposesNamespace(t *testing.T) {
	m := NewMetrics("handler")
	m.SetSessions(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "handler_sessions 2") {
		t.Fatalf("metrics output missing handler_sessions gauge:\n%s", body)
	}
}

func TestResetTurnStagesClearsWindow(t *testing.T) {
	m := NewMetrics("reset")
	m.ObserveStage("generation", time.Second)
	m.ObserveTurn("completed")
	m.ResetTurnStages()

	snap := m.SnapshotTurnStages()
	if len(snap.Stages) != 0 || len(snap.Indicators) != 0 {
		t.Fatalf("snapshot after reset = %+v, want empty", snap)
	}
	if got := testutil.ToFloat64(m.Turns.WithLabelValues("completed")); got != 1 {
		t.Fatalf("turns{completed} = %v, want counters untouched by reset", got)
	}
}
