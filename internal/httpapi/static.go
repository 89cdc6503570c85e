package httpapi

import (
	"bytes"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/ent0n29/voxturn/internal/audio"
)

//go:embed static/*
var embeddedStatic embed.FS

// generatedClips are rendered once at startup and served next to the embedded assets.
var generatedClips = map[string]func() ([]byte, error){
	"fallback.wav": audio.FallbackChimeWAV,
	"ack.wav":      audio.AckChimeWAV,
}

func newStaticHandler() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.FS(sub))

	clips := make(map[string][]byte, len(generatedClips))
	for name, render := range generatedClips {
		b, err := render()
		if err != nil {
			slog.Error("render static clip failed", slog.String("name", name), slog.Any("err", err))
			continue
		}
		clips[name] = b
	}
	modTime := time.Now()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clip, ok := clips[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "audio/wav")
			w.Header().Set("Cache-Control", "public, max-age=86400")
			http.ServeContent(w, r, r.URL.Path, modTime, bytes.NewReader(clip))
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := embeddedStatic.ReadFile("static/index.html")
	if err != nil {
		respondError(w, http.StatusNotFound, "frontend_not_found", "frontend not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(page))
}
