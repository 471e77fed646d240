package web

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/go-spotify-yearly-albums/internal/albums"
	"github.com/justestif/go-spotify-yearly-albums/internal/auth"
	"github.com/justestif/go-spotify-yearly-albums/internal/db"
	"github.com/justestif/go-spotify-yearly-albums/internal/render"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	PerMonth     int
	CacheMB      int
	CacheTTL     time.Duration
	Database     *db.DB // nil selects the in-memory session store
	TemplatesFS  fs.FS
	StaticFS     fs.FS
	Logger       *log.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions SessionManager
	logger   *log.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	manager := auth.NewManager(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	})

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	var sessions SessionManager
	if cfg.Database != nil {
		sessions = NewDBSessionStore(cfg.Database)
	} else {
		sessions = NewMemorySessionStore()
	}

	cache := albums.NewCache(cfg.CacheMB, cfg.CacheTTL)
	compositor := render.NewCompositor(render.NewHTTPFetcher(), cfg.Logger)
	handlers := NewHandlers(manager, sessions, templates, cache, compositor, cfg.PerMonth, cfg.Logger)

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		sessions: sessions,
		logger:   cfg.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes(handlers, cfg.StaticFS)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // composite rendering fetches covers
		IdleTimeout:  60 * time.Second,
		ErrorLog:     cfg.Logger.StandardLog(),
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(h *Handlers, staticFS fs.FS) {
	// Static files
	fileServer := http.FileServer(http.FS(staticFS))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// Pages
	s.router.Get("/", h.Home)
	s.router.Get("/albums", h.Albums)
	s.router.Get("/albums/image", h.AlbumsImage)

	// Auth routes
	s.router.Get("/auth/login", h.Login)
	s.router.Get("/callback", h.Callback)
	s.router.Post("/auth/logout", h.Logout)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://%s", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
