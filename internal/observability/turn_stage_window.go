package observability

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// p95 latency budgets in milliseconds for the stages a voice turn passes through.
var stageTargetsP95MS = map[string]float64{
	"transcription": 8000,
	"generation":    4000,
	"synthesis":     6000,
	"session_wait":  250,
	"turn_total":    16000,
}

type TurnStageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	OverTarget  bool    `json:"over_target,omitempty"`
}

type TurnIndicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TurnStageSnapshot is the payload served by the perf endpoint.
type TurnStageSnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowSize  int              `json:"window_size"`
	Stages      []TurnStageStats `json:"stages"`
	Indicators  []TurnIndicator  `json:"indicators,omitempty"`
}

// latencyRing keeps the most recent samples, overwriting the oldest.
type latencyRing struct {
	buf  []float64
	head int
	size int
	last float64
}

func (r *latencyRing) push(ms float64) {
	r.buf[r.head] = ms
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
	r.last = ms
}

func (r *latencyRing) sorted() []float64 {
	out := slices.Clone(r.buf[:r.size])
	slices.Sort(out)
	return out
}

type turnStageWindow struct {
	mu         sync.RWMutex
	capacity   int
	rings      map[string]*latencyRing
	indicators map[string]int
}

func newTurnStageWindow(capacity int) *turnStageWindow {
	if capacity <= 0 {
		capacity = 256
	}
	w := &turnStageWindow{capacity: capacity}
	w.clear()
	return w
}

func (w *turnStageWindow) clear() {
	w.rings = make(map[string]*latencyRing)
	w.indicators = make(map[string]int)
}

func (w *turnStageWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 || math.IsNaN(ms) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	r := w.rings[stage]
	if r == nil {
		r = &latencyRing{buf: make([]float64, w.capacity)}
		w.rings[stage] = r
	}
	r.push(ms)
}

func (w *turnStageWindow) ObserveIndicator(name string) {
	if w == nil {
		return
	}
	if name = strings.TrimSpace(name); name == "" {
		return
	}
	w.mu.Lock()
	w.indicators[name]++
	w.mu.Unlock()
}

func (w *turnStageWindow) Snapshot() TurnStageSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := TurnStageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.capacity,
		Stages:      make([]TurnStageStats, 0, len(w.rings)),
	}
	for _, stage := range slices.Sorted(maps.Keys(w.rings)) {
		r := w.rings[stage]
		if r.size == 0 {
			continue
		}
		snap.Stages = append(snap.Stages, summarize(stage, r))
	}
	for _, name := range slices.Sorted(maps.Keys(w.indicators)) {
		if n := w.indicators[name]; n > 0 {
			snap.Indicators = append(snap.Indicators, TurnIndicator{Name: name, Count: n})
		}
	}
	return snap
}

func (w *turnStageWindow) Reset() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clear()
}

func summarize(stage string, r *latencyRing) TurnStageStats {
	samples := r.sorted()
	var sum float64
	for _, v := range samples {
		sum += v
	}
	p95 := quantile(samples, 0.95)
	target := stageTargetsP95MS[stage]
	return TurnStageStats{
		Stage:       stage,
		Samples:     len(samples),
		LastMS:      round2(r.last),
		AvgMS:       round2(sum / float64(len(samples))),
		P50MS:       round2(quantile(samples, 0.50)),
		P95MS:       round2(p95),
		P99MS:       round2(quantile(samples, 0.99)),
		TargetP95MS: target,
		OverTarget:  target > 0 && p95 > target,
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(pos)
	if lo+1 >= n {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
