package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/media-catalog/internal/auth"
	"github.com/Clark-Hu/media-catalog/internal/blob"
	"github.com/Clark-Hu/media-catalog/internal/catalog"
	"github.com/Clark-Hu/media-catalog/internal/config"
	"github.com/Clark-Hu/media-catalog/internal/domain"
)

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer is wired to.
type Deps struct {
	Health   HealthChecker
	Catalog  *catalog.Service
	Identity auth.Provider
	Blobs    blob.Store
}

// ShutdownTimeout bounds how long Start waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	health   HealthChecker
	catalog  *catalog.Service
	identity auth.Provider
	blobs    blob.Store
	logger   *slog.Logger
	router   chi.Router
	httpSrv  *http.Server
	now      func() time.Time
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(slogFormatter{logger: logger}))
	r.Use(middleware.Recoverer)
	if cfg.WriteTimeoutSecs > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.WriteTimeoutSecs) * time.Second))
	}

	s := &Server{
		cfg:      cfg,
		health:   deps.Health,
		catalog:  deps.Catalog,
		identity: deps.Identity,
		blobs:    deps.Blobs,
		logger:   logger,
		router:   r,
		now:      time.Now,
	}
	s.httpSrv = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSecs) * time.Second,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.With(s.requireAuth).Post("/", s.handleCreateEntry)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEntry)
				r.With(s.requireAuth).Patch("/", s.handleUpdateEntry)
				r.With(s.requireAuth).Delete("/", s.handleDeleteEntry)
				r.With(s.requireAuth, s.requireRole(domain.RoleAdmin)).Post("/approve", s.handleModerateEntry)
			})
		})

		r.With(s.requireAuth).Post("/uploads", s.handleUpload)
	})
}

// Start serves until ctx is cancelled or the listener fails. On
// cancellation it stops accepting connections and returns once in-flight
// requests have drained or ShutdownTimeout has elapsed.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http: listening", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := s.httpSrv.Shutdown(shutdownCtx)
	<-errCh
	return err
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Movies API"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
