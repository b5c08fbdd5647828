package server

import (
	"net/http"

	"marketing-site/pkg/site"
)

type searchReply struct {
	Results []site.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results := s.searcher.Search(r.URL.Query().Get("q"))
	if results == nil {
		results = []site.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, searchReply{Results: results})
}
