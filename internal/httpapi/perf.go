package httpapi

import "net/http"

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

// handlePerfReset clears the rolling latency window, e.g. between load runs.
func (s *Server) handlePerfReset(w http.ResponseWriter, _ *http.Request) {
	s.metrics.ResetTurnStages()
	w.WriteHeader(http.StatusNoContent)
}
