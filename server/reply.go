package server

import (
	"encoding/json"
	"net/http"
)

type errorReply struct {
	OK    bool     `json:"ok"`
	Error string   `json:"error"`
	Codes []string `json:"codes,omitempty"`
}

type okReply struct {
	OK bool `json:"ok"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusMethodNotAllowed, errorReply{Error: "Method not allowed"})
}
