package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ent0n29/voxturn/internal/archive"
	"github.com/ent0n29/voxturn/internal/config"
	"github.com/ent0n29/voxturn/internal/httpapi"
	"github.com/ent0n29/voxturn/internal/observability"
	"github.com/ent0n29/voxturn/internal/session"
	"github.com/ent0n29/voxturn/internal/voice"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     *session.Store
	Orchestrator *voice.Orchestrator
	Catalog      *voice.Catalog
	Metrics      *observability.Metrics
	VoiceDetail  string

	// Cleanup drains pending archive writes and releases external resources.
	Cleanup func(ctx context.Context) error
}

// initTracing is swapped in tests to observe provider shutdown.
var initTracing = observability.InitTracing

func Build(ctx context.Context, cfg config.Config) (_ *BuildResult, err error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	shutdownTracing, err := initTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.MetricsNamespace,
		Stdout:      cfg.TraceStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		if err != nil {
			if serr := shutdownTracing(context.WithoutCancel(ctx)); serr != nil {
				slog.Warn("shutdown tracing after failed build", slog.Any("err", serr))
			}
		}
	}()

	catalog, err := voice.LoadCatalog(cfg.VoiceCatalogPath, cfg.DefaultVoiceID)
	if err != nil {
		return nil, fmt.Errorf("voice catalog init failed: %w", err)
	}

	voiceSetup, err := resolveVoiceProviders(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range voiceSetup.warnings {
		slog.Warn("voice provider not fully configured", slog.String("detail", w))
	}

	arch, err := archive.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("transcript archive init failed: %w", err)
	}

	sessions := session.NewStore()
	sessions.SetCreateHook(func(s *session.Session) {
		metrics.SetSessions(sessions.Count())
		slog.Debug("session created", slog.String("session_id", s.ID()))
	})

	orchestrator := voice.NewOrchestrator(
		sessions,
		voiceSetup.transcriber,
		voiceSetup.generator,
		voiceSetup.synthesizer,
		catalog,
		metrics,
		arch,
		voice.OrchestratorOptions{
			FallbackAudioURL:  cfg.FallbackAudioURL,
			TranscribeTimeout: cfg.TranscribeTimeout,
			GenerateTimeout:   cfg.GenerateTimeout,
			SynthesizeTimeout: cfg.SynthesizeTimeout,
			ContextTurns:      cfg.HistoryContextTurns,
		},
	)

	api := httpapi.New(cfg, sessions, orchestrator, catalog, metrics)
	api.SetReadinessCheck(arch.Ping)

	cleanup := func(ctx context.Context) error {
		var errs []error
		if err := orchestrator.Drain(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain archive writes: %w", err))
		}
		if err := arch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
		if err := shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		return errors.Join(errs...)
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Catalog:      catalog,
		Metrics:      metrics,
		VoiceDetail:  voiceSetup.detail,
		Cleanup:      cleanup,
	}, nil
}
