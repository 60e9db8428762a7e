package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/cache"
	"github.com/ArtyProf/steam-card-idler/pkg/events"
	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/metrics"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// Idler is the slice of the idling scheduler the API reads and pokes.
type Idler interface {
	State() types.IdlerState
	ActiveSet() []types.ActiveApp
	EverRewardedCount() int
	Target() int
	LastRefresh() time.Time
	NextRefresh() time.Time
	RefreshNow() error
}

// Session is the slice of the session supervisor the API reads and
// pokes.
type Session interface {
	State() types.ConnState
	ReconnectNow() error
}

// Account exposes the signed-in identity for status responses.
type Account interface {
	AccountName() string
	AccountID() uint64
}

// Deps are the daemon components the API serves. Any entry may be
// nil; its endpoints then answer 503.
type Deps struct {
	Idler   Idler
	Session Session
	Account Account
	Cache   *cache.Cache
	History *events.History
}

// Config tunes the HTTP server.
type Config struct {
	Addr string
}

// Server is the admin and status HTTP server. Everything it exposes
// is read-only except the refresh and reconnect kicks.
type Server struct {
	cfg    Config
	deps   Deps
	http   *http.Server
	logger zerolog.Logger

	mu   sync.Mutex
	addr string
}

// NewServer assembles the router. Nothing listens until Start.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithComponent("api"),
	}

	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Get("/live", metrics.LivenessHandler())
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/active", s.handleActive)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/reconnect", s.handleReconnect)
		r.Get("/events", s.handleEvents)
		r.Get("/cache", s.handleCache)
	})

	s.http = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listen address and serves in the background. A
// bind failure is returned synchronously; serve failures after that
// are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("admin api listening")

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("admin api server failed")
		}
	}()
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
