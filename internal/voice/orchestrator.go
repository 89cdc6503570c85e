package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ent0n29/voxturn/internal/archive"
	"github.com/ent0n29/voxturn/internal/observability"
	"github.com/ent0n29/voxturn/internal/session"
)

// State is a pipeline position reported on fallback results.
type State string

const (
	StateReceived     State = "received"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StateCompleted    State = "completed"
	StateFallback     State = "fallback"
)

const (
	emptySpeechReply    = "No speech detected. Please try speaking again."
	unavailableReply    = "I'm having trouble connecting right now. Please try again in a moment."
	generationFailReply = "Sorry, I couldn't come up with a reply just now. Please try again."
	archiveSaveTimeout  = 2 * time.Second
)

type TurnRequest struct {
	SessionID string
	Audio     []byte
	VoiceID   string
}

// TurnResult is the outcome of one round. Fallback results still carry any
// text produced before the failing stage.
type TurnResult struct {
	AudioURL string `json:"audio_url"`
	UserText string `json:"user_text"`
	AIText   string `json:"ai_text"`
	VoiceID  string `json:"voice_id,omitempty"`
	State    State  `json:"-"`
	Fallback bool   `json:"fallback,omitempty"`
	Stage    State  `json:"stage,omitempty"`
	Error    string `json:"error,omitempty"`
}

type OrchestratorOptions struct {
	FallbackAudioURL  string
	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
	SynthesizeTimeout time.Duration
	// ContextTurns caps how many trailing turns are sent to generation.
	// Zero sends the whole history.
	ContextTurns int
}

type Orchestrator struct {
	sessions    *session.Store
	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer
	catalog     *Catalog
	metrics     *observability.Metrics
	archive     archive.Archive
	opts        OrchestratorOptions

	archiveWG sync.WaitGroup
}

func NewOrchestrator(
	sessions *session.Store,
	transcriber Transcriber,
	generator Generator,
	synthesizer Synthesizer,
	catalog *Catalog,
	metrics *observability.Metrics,
	arch archive.Archive,
	opts OrchestratorOptions,
) *Orchestrator {
	if arch == nil {
		arch = archive.Nop{}
	}
	if strings.TrimSpace(opts.FallbackAudioURL) == "" {
		opts.FallbackAudioURL = "/static/fallback.wav"
	}
	return &Orchestrator{
		sessions:    sessions,
		transcriber: transcriber,
		generator:   generator,
		synthesizer: synthesizer,
		catalog:     catalog,
		metrics:     metrics,
		archive:     arch,
		opts:        opts,
	}
}

// HandleTurn runs one transcribe, generate, synthesize round for a session.
// It never fails: every stage error becomes a fallback result.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) TurnResult {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "voice.turn",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	res := o.handleTurn(ctx, req)

	span.SetAttributes(attribute.String("turn.state", string(res.State)))
	if res.Fallback {
		span.SetAttributes(attribute.String("turn.failed_stage", string(res.Stage)))
	}
	o.metrics.ObserveStage("turn_total", time.Since(start))
	return res
}

func (o *Orchestrator) handleTurn(ctx context.Context, req TurnRequest) TurnResult {
	log := observability.Logger(ctx).With(slog.String("session_id", req.SessionID))

	sess := o.sessions.GetOrCreate(req.SessionID)
	ticket := sess.Reserve()
	defer ticket.Release()

	userText, err := o.transcribe(ctx, req.Audio)
	if errors.Is(err, ErrEmptySpeech) {
		log.Info("no speech detected", slog.Int("audio_bytes", len(req.Audio)))
		o.metrics.ObserveTurn("empty_speech")
		return o.fallback(StateTranscribing, "", emptySpeechReply, ErrEmptySpeech.Error())
	}
	if err != nil {
		o.recordStageFailure(log, StageTranscription, err)
		return o.fallback(StateTranscribing, "", unavailableReply, "transcription failed: "+err.Error())
	}

	waitStart := time.Now()
	if err := ticket.Wait(ctx); err != nil {
		log.Warn("request ended while waiting for session", slog.Any("err", err))
		o.metrics.ObserveTurn("abandoned")
		return o.fallback(StateGenerating, userText, unavailableReply, "request cancelled before the turn was recorded")
	}
	o.metrics.ObserveStage("session_wait", time.Since(waitStart))

	userTurn, err := ticket.Append(session.RoleUser, userText)
	if err != nil {
		log.Error("append user turn failed", slog.Any("err", err))
		o.metrics.ObserveTurn("fallback")
		return o.fallback(StateGenerating, userText, generationFailReply, err.Error())
	}
	o.archiveTurn(req.SessionID, userTurn)

	history, err := ticket.History()
	if err != nil {
		log.Error("read history failed", slog.Any("err", err))
		o.metrics.ObserveTurn("fallback")
		return o.fallback(StateGenerating, userText, generationFailReply, err.Error())
	}

	reply, err := o.generate(ctx, contextWindow(history, o.opts.ContextTurns))
	if err != nil {
		o.recordStageFailure(log, StageGeneration, err)
		return o.fallback(StateGenerating, userText, generationFailReply, "generation failed: "+err.Error())
	}

	assistantTurn, err := ticket.Append(session.RoleAssistant, reply)
	if err != nil {
		log.Error("append assistant turn failed", slog.Any("err", err))
		o.metrics.ObserveTurn("fallback")
		return o.fallback(StateGenerating, userText, generationFailReply, err.Error())
	}
	ticket.Release()
	o.archiveTurn(req.SessionID, assistantTurn)

	voiceID := o.resolveVoice(req.VoiceID)
	audioURL, err := o.synthesize(ctx, reply, voiceID)
	if err != nil {
		o.recordStageFailure(log, StageSynthesis, err)
		res := o.fallback(StateSynthesizing, userText, reply, "speech synthesis failed: "+err.Error())
		res.VoiceID = voiceID
		return res
	}

	o.metrics.ObserveTurn("completed")
	log.Info("turn completed",
		slog.Int("history_len", sess.Len()),
		slog.String("voice_id", voiceID),
	)
	return TurnResult{
		AudioURL: audioURL,
		UserText: userText,
		AIText:   reply,
		VoiceID:  voiceID,
		State:    StateCompleted,
	}
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := withOptionalTimeout(ctx, o.opts.TranscribeTimeout)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, "voice.transcribe",
		trace.WithAttributes(attribute.Int("audio.bytes", len(audio))))
	defer span.End()

	start := time.Now()
	text, err := o.transcriber.Transcribe(ctx, audio)
	o.metrics.ObserveStage(string(StageTranscription), time.Since(start))
	if errors.Is(err, ErrEmptySpeech) {
		span.SetAttributes(attribute.Bool("speech.empty", true))
		return "", err
	}
	if err != nil {
		err = asStageError(StageTranscription, "", err)
		markSpanError(span, err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptySpeech
	}
	return text, nil
}

func (o *Orchestrator) generate(ctx context.Context, history []session.Turn) (string, error) {
	ctx, cancel := withOptionalTimeout(ctx, o.opts.GenerateTimeout)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, "voice.generate",
		trace.WithAttributes(attribute.Int("history.turns", len(history))))
	defer span.End()

	start := time.Now()
	reply, err := o.generator.Generate(ctx, history)
	o.metrics.ObserveStage(string(StageGeneration), time.Since(start))
	if err == nil && strings.TrimSpace(reply) == "" {
		err = stageErr(StageGeneration, CauseMalformed, "", errors.New("empty reply text"))
	}
	if err != nil {
		err = asStageError(StageGeneration, "", err)
		markSpanError(span, err)
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (o *Orchestrator) synthesize(ctx context.Context, text, voiceID string) (string, error) {
	ctx, cancel := withOptionalTimeout(ctx, o.opts.SynthesizeTimeout)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, "voice.synthesize",
		trace.WithAttributes(attribute.String("voice.id", voiceID)))
	defer span.End()

	start := time.Now()
	url, err := o.synthesizer.Synthesize(ctx, text, voiceID)
	o.metrics.ObserveStage(string(StageSynthesis), time.Since(start))
	if err == nil && strings.TrimSpace(url) == "" {
		err = stageErr(StageSynthesis, CauseMalformed, "", errors.New("empty audio url"))
	}
	if err != nil {
		err = asStageError(StageSynthesis, "", err)
		markSpanError(span, err)
		return "", err
	}
	return strings.TrimSpace(url), nil
}

func (o *Orchestrator) resolveVoice(requested string) string {
	if o.catalog != nil {
		return o.catalog.Resolve(requested)
	}
	if v := strings.TrimSpace(requested); v != "" {
		return v
	}
	return DefaultVoiceID
}

func (o *Orchestrator) fallback(stage State, userText, aiText, diag string) TurnResult {
	return TurnResult{
		AudioURL: o.opts.FallbackAudioURL,
		UserText: userText,
		AIText:   aiText,
		State:    StateFallback,
		Fallback: true,
		Stage:    stage,
		Error:    diag,
	}
}

func (o *Orchestrator) recordStageFailure(log *slog.Logger, stage Stage, err error) {
	cause := CauseUnavailable
	provider := "unknown"
	var se *StageError
	if errors.As(err, &se) {
		cause = se.Cause
		if se.Provider != "" {
			provider = se.Provider
		}
	}
	log.Error("pipeline stage failed",
		slog.String("stage", string(stage)),
		slog.String("cause", string(cause)),
		slog.String("provider", provider),
		slog.Any("err", err),
	)
	o.metrics.ObserveProviderError(provider, string(cause))
	o.metrics.ObserveFallback(string(stage), string(cause))
	o.metrics.ObserveTurn("fallback")
}

func (o *Orchestrator) archiveTurn(sessionID string, turn session.Turn) {
	record := archive.FromTurn(sessionID, turn)
	o.archiveWG.Add(1)
	go func() {
		defer o.archiveWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveSaveTimeout)
		defer cancel()
		if err := o.archive.Record(ctx, record); err != nil {
			slog.Warn("archive turn failed", slog.String("session_id", sessionID), slog.Any("err", err))
			o.metrics.ObserveProviderError("archive", "unavailable")
		}
	}()
}

// Drain waits for pending archive writes or until ctx is done.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.archiveWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// contextWindow returns at most limit trailing turns, trimmed so the window
// opens on a user turn. A limit of zero or less keeps everything.
func contextWindow(history []session.Turn, limit int) []session.Turn {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	window := history[len(history)-limit:]
	for len(window) > 0 && window[0].Role != session.RoleUser {
		window = window[1:]
	}
	if len(window) == 0 {
		return history[len(history)-1:]
	}
	return window
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func markSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
