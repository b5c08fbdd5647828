package server

import (
	"net"
	"net/http"
	"strings"
)

// clientIP resolves the submitter's address for rate limiting.
//
// With no trusted proxy hops configured it reads the Cloudflare header, then the
// first X-Forwarded-For entry, then X-Real-IP, then RemoteAddr. Those headers
// are client controlled unless the edge proxy overwrites them.
//
// With n trusted hops it reads only X-Forwarded-For, taking the entry appended
// by the outermost trusted proxy (n from the right), which a client cannot forge.
func (s *Server) clientIP(r *http.Request) string {
	if s.proxyHops > 0 {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if idx := len(parts) - s.proxyHops; idx >= 0 {
				if ip := strings.TrimSpace(parts[idx]); ip != "" {
					return ip
				}
			}
		}
		return remoteHost(r)
	}

	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
