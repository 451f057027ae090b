// Package server wires the signstream HTTP surface: the WebSocket audio
// streaming endpoint, the sign rendering REST API, artifact serving, and the
// health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/signstream/signstream/internal/config"
	"github.com/signstream/signstream/internal/health"
	"github.com/signstream/signstream/internal/observe"
	"github.com/signstream/signstream/internal/sign"
	"github.com/signstream/signstream/pkg/engine"
)

// shutdownTimeout bounds graceful drain of in-flight requests on shutdown.
const shutdownTimeout = 10 * time.Second

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithTranslator enables the /translate endpoint. Without it the endpoint
// reports that no mapping is configured.
func WithTranslator(t *sign.Translator) Option {
	return func(s *Server) { s.translator = t }
}

// WithMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger overrides the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithHealthCheckers registers readiness checks served on /readyz.
func WithHealthCheckers(checkers ...health.Checker) Option {
	return func(s *Server) { s.checkers = checkers }
}

// Server hosts the signstream HTTP API. Construct with [New], then either
// mount [Server.Handler] yourself or call [Server.Run].
type Server struct {
	cfg      *config.Config
	eng      engine.Transcriber
	library  *sign.Library
	renderer *sign.Renderer

	translator *sign.Translator
	checkers   []health.Checker
	metrics    *observe.Metrics
	log        *slog.Logger
}

// New creates a Server over the given engine and sign subsystem.
func New(cfg *config.Config, eng engine.Transcriber, library *sign.Library, renderer *sign.Renderer, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		eng:      eng,
		library:  library,
		renderer: renderer,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler builds the full route table wrapped in observability and CORS
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("POST /signs/render", s.handleRender)
	mux.HandleFunc("GET /signs/letters", s.handleLettersList)
	mux.HandleFunc("PUT /signs/letters/{letter}", s.handleLetterPut)
	mux.HandleFunc("DELETE /signs/letters/{letter}", s.handleLetterDelete)
	mux.HandleFunc("POST /translate", s.handleTranslate)
	mux.HandleFunc("GET /gifs/{filename}", s.handleGIF)

	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(s.checkers...).Register(mux)

	return cors(observe.Middleware(s.metrics)(mux))
}

// Run serves the API on the configured listen address until ctx is cancelled,
// then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("server shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// cors applies a permissive CORS policy and answers preflight requests before
// they reach the method-matched mux.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
