package observability

import "testing"

func TestTurnStageWindowSnapshot(t *testing.T) {
	w := newTurnStageWindow(8)
	w.Observe("generation", 500)
	w.Observe("generation", 700)
	w.Observe("generation", 900)
	w.ObserveIndicator("fallback_synthesis")
	w.ObserveIndicator("fallback_synthesis")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "generation" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "generation")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 4000 {
		t.Fatalf("TargetP95MS = %.2f, want 4000", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "fallback_synthesis" {
		t.Fatalf("Indicators[0].Name = %q, want %q", snap.Indicators[0].Name, "fallback_synthesis")
	}
	if snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0].Count = %d, want %d", snap.Indicators[0].Count, 2)
	}
}

func TestTurnStageWindowWrapsAtCapacity(t *testing.T) {
	w := newTurnStageWindow(2)
	w.Observe("synthesis", 100)
	w.Observe("synthesis", 200)
	w.Observe("synthesis", 300)

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", s.Samples)
	}
	if s.AvgMS != 250 {
		t.Fatalf("AvgMS = %.2f, want 250", s.AvgMS)
	}
}

func TestTurnStageWindowIgnoresInvalidSamples(t *testing.T) {
	w := newTurnStageWindow(4)
	w.Observe("", 10)
	w.Observe("generation", -1)
	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("len(Stages) = %d, want 0", got)
	}
	w.Observe("generation", 5)
	w.Reset()
	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("len(Stages) after Reset = %d, want 0", got)
	}
}

func TestTurnStageWindowFlagsStagesOverTarget(t *testing.T) {
	w := newTurnStageWindow(4)
	w.Observe("session_wait", 100)
	w.Observe("session_wait", 900)
	w.Observe("custom", 1e6)

	snap := w.Snapshot()
	if len(snap.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(snap.Stages))
	}
	custom, wait := snap.Stages[0], snap.Stages[1]
	if custom.Stage != "custom" || custom.OverTarget || custom.TargetP95MS != 0 {
		t.Fatalf("custom stage = %+v, want no target", custom)
	}
	if wait.Stage != "session_wait" || !wait.OverTarget {
		t.Fatalf("session_wait stage = %+v, want over target", wait)
	}
}

func TestQuantileInterpolates(t *testing.T) {
	cases := []struct {
		in   []float64
		q    float64
		want float64
	}{
		{nil, 0.5, 0},
		{[]float64{3}, 0.95, 3},
		{[]float64{0, 10}, 0.5, 5},
		{[]float64{1, 2, 3, 4, 5}, 0, 1},
		{[]float64{1, 2, 3, 4, 5}, 1, 5},
		{[]float64{1, 2, 3, 4, 5}, 0.25, 2},
	}
	for _, tc := range cases {
		if got := quantile(tc.in, tc.q); got != tc.want {
			t.Fatalf("quantile(%v, %v) = %v, want %v", tc.in, tc.q, got, tc.want)
		}
	}
}
