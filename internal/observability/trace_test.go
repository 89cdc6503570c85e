package observability

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestTraceIDEmptyWithoutSpan(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("TraceID(background) = %q, want empty", got)
	}
}

func TestLoggerCarriesTraceIDs(t *testing.T) {
	useTestTracer(t)

	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	ctx, span := StartSpan(context.Background(), "op")
	Logger(ctx).Info("hello")
	span.End()

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"`+TraceID(ctx)+`"`) {
		t.Fatalf("log line missing trace_id: %s", out)
	}
	if !strings.Contains(out, `"span_id"`) {
		t.Fatalf("log line missing span_id: %s", out)
	}
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	exp := useTestTracer(t)
	m := NewMetrics("mw")

	r := chi.NewRouter()
	r.Use(Middleware(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Fatalf("missing X-Trace-ID header")
	}
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if spans[0].Name != "HTTP GET /items/{id}" {
		t.Fatalf("span name = %q, want route pattern", spans[0].Name)
	}
}

func TestMiddlewareCollapsesUnmatchedPaths(t *testing.T) {
	exp := useTestTracer(t)
	m := NewMetrics("mw_unmatched")

	r := chi.NewRouter()
	r.Use(Middleware(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {})

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/random-%d", i), nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	}

	if n := testutil.CollectAndCount(m.HTTPRequests); n != 1 {
		t.Fatalf("request series = %d, want 1", n)
	}
	for _, span := range exp.GetSpans() {
		if span.Name != "HTTP GET unmatched" {
			t.Fatalf("span name = %q, want %q", span.Name, "HTTP GET unmatched")
		}
	}
}
