package demo

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/loykin/aegisrun/internal/common"
	"github.com/loykin/aegisrun/internal/config"
	"github.com/loykin/aegisrun/internal/constants"
)

//go:embed static
var embedded embed.FS

// Server serves the local test page and a health endpoint.
type Server struct {
	cfg    config.ServerConfig
	logger *common.Logger
	router *chi.Mux
	files  fs.FS
}

// NewServer builds the demo server. Files come from cfg.StaticDir when set,
// otherwise from the page compiled into the binary.
func NewServer(cfg config.ServerConfig, logger *common.Logger) (*Server, error) {
	if logger == nil {
		logger = common.GetLogger()
	}
	files, err := staticFiles(cfg.StaticDir)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.WithComponent("demo"),
		router: chi.NewRouter(),
		files:  files,
	}
	s.setupMiddleware()
	s.registerRoutes()
	return s, nil
}

func staticFiles(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "static")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir: not a directory: %s", dir)
	}
	return os.DirFS(dir), nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(corsOptions))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/", s.handleIndex)
	s.router.Handle("/*", http.FileServerFS(s.files))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	port := s.cfg.Port
	if port <= 0 {
		port = constants.DefaultDemoPort
	}
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("test UI listening", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = constants.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", "error", err)
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server shutdown complete")
	return nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "OK", Message: constants.HealthMessage})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := fs.Stat(s.files, "index.html"); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, s.files, "index.html")
}

// corsOptions lets the test page call the API from any origin.
var corsOptions = cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
	AllowedHeaders: []string{"*"},
	MaxAge:         300,
}
