package httpapi

import (
	"net/http"

	"github.com/ent0n29/voxturn/internal/voice"
)

type listVoicesResponse struct {
	DefaultVoiceID string            `json:"default_voice_id"`
	Voices         []voice.VoiceInfo `json:"voices"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		respondJSON(w, http.StatusOK, listVoicesResponse{
			DefaultVoiceID: voice.DefaultVoiceID,
			Voices:         []voice.VoiceInfo{},
		})
		return
	}
	respondJSON(w, http.StatusOK, listVoicesResponse{
		DefaultVoiceID: s.catalog.Default(),
		Voices:         s.catalog.Voices(),
	})
}
