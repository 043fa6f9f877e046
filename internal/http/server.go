package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gastos/internal/auth"
	"gastos/internal/game"
	applog "gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	"gastos/internal/services"
	"gastos/internal/storage"
	appweb "gastos/web"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Store    storage.Store
	Months   *services.MonthService
	Accounts *services.AccountService
	Games    *game.Service
	Sessions *auth.Sessions
	Logger   *applog.Logger

	// AuthRequestsPerMinute limits signup and login per client IP.
	AuthRequestsPerMinute int
	TrustedProxies        []string
}

// Server is the gastos web server: JSON API, game API and the two HTML pages.
type Server struct {
	http.Server

	deps      Deps
	logger    *applog.Logger
	router    chi.Router
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a server ready to
// ListenAndServe on addr.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Months == nil || deps.Accounts == nil || deps.Games == nil || deps.Sessions == nil {
		return nil, errors.New("http: missing dependency")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector, err := security.NewDetector(deps.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		deps:      deps,
		logger:    logger,
		templates: t,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.AuthRequestsPerMinute}),
		detector:  detector,
		tracer:    trace.NewMiddleware(logger, detector.ClientIP),
		started:   time.Now(),
	}

	router, err := s.routes()
	if err != nil {
		s.limiter.Stop()
		return nil, err
	}
	s.router = router
	s.Server = http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
	return s, nil
}

func (s *Server) routes() (chi.Router, error) {
	r := chi.NewRouter()

	r.Use(s.tracer.Handler)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	limited := s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate_limited")
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(applog.ComponentMiddleware(applog.ComponentAuth))

		r.With(limited).Post("/signup", s.handleSignup)
		r.With(limited).Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/me", s.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.With(applog.ComponentMiddleware(applog.ComponentMonths)).Group(func(r chi.Router) {
				r.Get("/data", s.handleData)
				r.Put("/months/{mes}", s.handlePutMonth)
				r.Delete("/months/{mes}", s.handleDeleteMonth)
				r.Get("/export", s.handleExport)
				r.Get("/template", s.handleGetTemplate)
				r.Put("/template", s.handlePutTemplate)
			})

			r.With(applog.ComponentMiddleware(applog.ComponentGame)).Route("/game", func(r chi.Router) {
				r.Post("/", s.handleStartGame)
				r.Get("/best", s.handleBestScore)
				r.Get("/{id}", s.handleGetGame)
				r.Delete("/{id}", s.handleEndGame)
				r.Post("/{id}/move", s.handleMove)
				r.Post("/{id}/reset", s.handleResetGame)
			})
		})

		// Unknown API paths still require a session before they 404.
		r.NotFound(s.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})).ServeHTTP)
	})

	r.NotFound(s.handlePage)
	return r, nil
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
