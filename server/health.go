package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

type healthReply struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	IndexedAt string `json:"indexed_at,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	reply := healthReply{Status: "healthy"}
	if s.reindexer != nil {
		n, at := s.reindexer.Stats()
		reply.Documents = n
		if !at.IsZero() {
			reply.IndexedAt = at.UTC().Format(time.RFC3339)
		}
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// handleReindex rebuilds the search corpus on demand, e.g. from a content deploy hook.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.reindexer == nil {
		s.writeJSON(w, http.StatusNotFound, errorReply{Error: "Not found"})
		return
	}
	if !s.reindexAllowed(r) {
		s.logger.Warn("Rejected reindex request", "ip", s.clientIP(r))
		s.writeJSON(w, http.StatusUnauthorized, errorReply{Error: "Unauthorized"})
		return
	}
	if err := s.reindexer.Refresh(r.Context()); err != nil {
		s.logger.Error("Reindex failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorReply{Error: "Reindex failed"})
		return
	}
	n, _ := s.reindexer.Stats()
	s.writeJSON(w, http.StatusOK, struct {
		Status    string `json:"status"`
		Documents int    `json:"documents"`
	}{Status: "completed", Documents: n})
}

// reindexAllowed checks the bearer token when one is configured.
func (s *Server) reindexAllowed(r *http.Request) bool {
	if s.reindexKey == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.reindexKey)) == 1
}
