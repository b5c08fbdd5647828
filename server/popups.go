package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"marketing-site/pkg/site"
	"marketing-site/popup"
)

type popupReply struct {
	Popup *site.Popup `json:"popup"`
}

// handlePopups returns the popup to arm for ?path=, honouring dismissal cookies.
func (s *Server) handlePopups(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		path = "/"
	}

	popups, err := s.popups.Popups(r.Context())
	if err != nil {
		s.logger.Error("Failed to load popups", "error", err)
		s.metrics.PopupServed("error")
		s.writeJSON(w, http.StatusInternalServerError, errorReply{Error: "Failed to load popups"})
		return
	}

	store := popup.NewCookieStore(r, nil, 0, s.secure)
	p := popup.Resolve(popups, path, store, s.now())
	switch {
	case p != nil:
		s.metrics.PopupServed("shown")
	case popup.Select(popups, path) != nil:
		s.metrics.PopupServed("suppressed")
	default:
		s.metrics.PopupServed("none")
	}
	s.writeJSON(w, http.StatusOK, popupReply{Popup: p})
}

// handleDismiss records a dismissal cookie that lives as long as the popup's suppression window.
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	popups, err := s.popups.Popups(r.Context())
	if err != nil {
		s.logger.Error("Failed to load popups", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorReply{Error: "Failed to load popups"})
		return
	}

	for i := range popups {
		if popups[i].Slug != slug {
			continue
		}
		window := popups[i].DismissWindow()
		if window > 0 {
			popup.NewCookieStore(r, w, window, s.secure).Record(slug, s.now())
		}
		s.writeJSON(w, http.StatusOK, okReply{OK: true})
		return
	}
	s.writeJSON(w, http.StatusNotFound, errorReply{Error: "Not found"})
}
