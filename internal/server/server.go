// Package server is the HTTP face of the row store and identity service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/gigboard/internal/auth"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		AllowedOrigins: []string{"*"},
		RequestTimeout: 60 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// StoreFor returns the row store of one user.
type StoreFor func(userID string) types.RowStore

// Server serves /auth, /projects and /health.
type Server struct {
	config  Config
	router  *chi.Mux
	httpSrv *http.Server
	auth    *auth.Service
	stores  StoreFor
	log     zerolog.Logger
}

// New creates a Server.
func New(cfg Config, svc *auth.Service, stores StoreFor, log zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		auth:   svc,
		stores: stores,
		log:    log,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	// Puts the verified token, if any, in the request context.
	s.router.Use(jwtauth.Verifier(s.auth.TokenAuth()))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.signUp)
		r.Post("/signin", s.signIn)
		r.With(s.authenticator).Post("/signout", s.signOut)
	})

	s.router.Route("/projects", func(r chi.Router) {
		r.Use(s.authenticator)
		r.Get("/", s.listProjects)
		r.Post("/", s.insertProject)
		r.Patch("/{id}", s.updateProject)
		r.Delete("/{id}", s.deleteProject)
	})
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.log.Info().Str("addr", s.config.Addr).Msg("listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}
