// Package server handles HTTP endpoints and request routing.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketing-site/forms"
	"marketing-site/metrics"
	"marketing-site/pkg/site"
)

// maxBodyBytes caps form request bodies.
const maxBodyBytes = 64 << 10

// Pipeline processes form submissions.
type Pipeline interface {
	Handle(ctx context.Context, form site.FormType, body []byte, client forms.Client) forms.Result
}

// Searcher answers search queries.
type Searcher interface {
	Search(query string) []site.SearchResult
}

// Reindexer rebuilds the search corpus.
type Reindexer interface {
	Refresh(ctx context.Context) error
	Stats() (int, time.Time)
}

// PopupSource loads popup definitions.
type PopupSource interface {
	Popups(ctx context.Context) ([]site.Popup, error)
}

// Server handles HTTP requests.
type Server struct {
	pipeline    Pipeline
	searcher    Searcher
	reindexer   Reindexer
	popups      PopupSource
	metrics     *metrics.Metrics
	logger      *slog.Logger
	corsOrigins []string
	reindexKey  string
	proxyHops   int
	secure      bool
	now         func() time.Time
}

// Config holds server configuration.
type Config struct {
	Pipeline         Pipeline
	Searcher         Searcher
	Reindexer        Reindexer
	Popups           PopupSource
	Metrics          *metrics.Metrics
	Logger           *slog.Logger
	CORSOrigins      []string
	// ReindexToken, when set, must be sent as "Authorization: Bearer <token>" to /reindexz.
	ReindexToken     string
	// TrustedProxyHops is the number of proxies in front of the service that
	// append to X-Forwarded-For. Zero trusts the client IP headers as sent.
	TrustedProxyHops int
	// Secure marks cookies Secure; set when served over HTTPS.
	Secure           bool
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		pipeline:    cfg.Pipeline,
		searcher:    cfg.Searcher,
		reindexer:   cfg.Reindexer,
		popups:      cfg.Popups,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		corsOrigins: cfg.CORSOrigins,
		reindexKey:  cfg.ReindexToken,
		proxyHops:   cfg.TrustedProxyHops,
		secure:      cfg.Secure,
		now:         time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverJSON)
	r.Use(securityHeaders)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusNotFound, errorReply{Error: "Not found"})
	})
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Get("/health", s.handleHealth)
	r.Post("/reindexz", s.handleReindex)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Form routes accept every method so the handlers answer 405 themselves.
		r.HandleFunc("/contact", s.handleForm(site.FormContact))
		r.HandleFunc("/quote", s.handleForm(site.FormQuote))
		r.HandleFunc("/subscribe", s.handleForm(site.FormSubscribe))
		r.Get("/search", s.handleSearch)
		r.Get("/popups", s.handlePopups)
		r.Post("/popups/{slug}/dismiss", s.handleDismiss)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Routes(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
