package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/voxturn/internal/config"
	"github.com/ent0n29/voxturn/internal/observability"
	"github.com/ent0n29/voxturn/internal/session"
	"github.com/ent0n29/voxturn/internal/voice"
)

// TurnHandler runs one conversational round.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req voice.TurnRequest) voice.TurnResult
}

type Server struct {
	cfg      config.Config
	sessions *session.Store
	turns    TurnHandler
	catalog  *voice.Catalog
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler
	ready    func(context.Context) error
}

func New(cfg config.Config, sessions *session.Store, turns TurnHandler, catalog *voice.Catalog, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		turns:    turns,
		catalog:  catalog,
		metrics:  metrics,
		static:   newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// SetReadinessCheck installs a dependency probe for /readyz.
func (s *Server) SetReadinessCheck(fn func(context.Context) error) {
	s.ready = fn
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.Middleware(s.metrics))

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/agent", func(r chi.Router) {
		r.Post("/chat/{session_id}", s.handleChat)
		r.Get("/chat/{session_id}/history", s.handleHistory)
		r.Get("/voices", s.handleListVoices)
		r.Get("/perf", s.handlePerfLatency)
		r.Delete("/perf", s.handlePerfReset)
	})
	r.Get("/ws", s.handleEchoWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"provider_mode": s.cfg.ProviderMode,
		"sessions":      s.sessions.Count(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"provider_mode": s.cfg.ProviderMode,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusBadRequest, "payload_too_large", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_file", "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable_file", err.Error())
		return
	}

	voiceID := r.FormValue("voice_id")
	observability.Logger(r.Context()).Info("processing chat",
		slog.String("session_id", sessionID),
		slog.String("voice_id", voiceID),
		slog.Int("audio_bytes", len(audio)),
	)

	res := s.turns.HandleTurn(r.Context(), voice.TurnRequest{
		SessionID: sessionID,
		Audio:     audio,
		VoiceID:   voiceID,
	})
	s.metrics.SetSessions(s.sessions.Count())
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		respondJSON(w, http.StatusOK, session.Snapshot{ID: sessionID, Turns: []session.Turn{}})
		return
	}
	respondJSON(w, http.StatusOK, sess.Snapshot())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
