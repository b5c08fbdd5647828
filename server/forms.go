package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"marketing-site/captcha"
	"marketing-site/forms"
	"marketing-site/pkg/site"
)

// handleForm returns the POST handler for one form type.
func (s *Server) handleForm(form site.FormType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			s.methodNotAllowed(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				s.writeJSON(w, http.StatusRequestEntityTooLarge, errorReply{Error: "Request too large"})
				return
			}
			s.logger.Warn("Failed to read form body", "form", form, "error", err)
			s.writeJSON(w, http.StatusBadRequest, errorReply{Error: forms.MsgFailed})
			return
		}

		res := s.pipeline.Handle(r.Context(), form, body, forms.Client{
			IP:       s.clientIP(r),
			RemoteIP: captcha.RemoteIP(r.Header),
		})

		if res.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
		}
		if res.OK {
			s.writeJSON(w, res.Status, okReply{OK: true})
			return
		}
		s.writeJSON(w, res.Status, errorReply{Error: res.Error, Codes: res.Codes})
	}
}
