package api

import (
	"encoding/json"
	"net/http"
)

// handleFields lists the canonical fields compared between both sources.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	fields := s.orchestrator.Comparer().Engine().Schema().Fields()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"fields": fields})
}
