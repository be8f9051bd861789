package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/auth"
	"github.com/bkeenke/shm-admin-2/internal/config"
	"github.com/bkeenke/shm-admin-2/internal/interfaces"
	"github.com/bkeenke/shm-admin-2/internal/refresh"
)

// maxRequestBody bounds PUT/PATCH payloads
const maxRequestBody = 8 << 20

// Dependencies are the components the handlers call into.
// Loader and Fetcher may be nil, in which case /tables is not served.
// A nil Issuer disables bearer token checks.
type Dependencies struct {
	Cache      interfaces.Cache
	KeyBuilder interfaces.KeyBuilder
	Loader     *refresh.Loader
	Fetcher    interfaces.TableFetcher
	Issuer     *auth.Issuer
}

// Server represents the HTTP cache server
type Server struct {
	deps   Dependencies
	cfg    config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a new cache HTTP server
func NewServer(deps Dependencies, cfg config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
}

// Start serves on the configured unix socket if set, otherwise on the TCP listen address
func (s *Server) Start() error {
	if s.cfg.SocketPath != "" {
		return s.StartUnixSocket(s.cfg.SocketPath)
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting cache HTTP server", zap.String("addr", listener.Addr().String()))
	return s.serve(listener)
}

// StartUnixSocket starts the HTTP server on a Unix socket
func (s *Server) StartUnixSocket(socketPath string) error {
	if err := os.RemoveAll(socketPath); err != nil {
		s.logger.Warn("Failed to remove existing socket file", zap.String("path", socketPath), zap.Error(err))
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}

	// Readable/writable by owner and group
	if err := os.Chmod(socketPath, 0660); err != nil {
		s.logger.Warn("Failed to set socket permissions", zap.String("path", socketPath), zap.Error(err))
	}

	s.logger.Info("Starting cache HTTP server on Unix socket", zap.String("socket_path", socketPath))
	return s.serve(listener)
}

func (s *Server) serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:      s.createRouter(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping cache HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// createRouter creates and configures the HTTP router
func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(s.authMiddleware)

	// Settings panel
	api.HandleFunc("/cache/policy", s.handleGetPolicy).Methods(http.MethodGet)
	api.HandleFunc("/cache/policy", s.handlePatchPolicy).Methods(http.MethodPatch)
	api.HandleFunc("/cache/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/cache", s.handleClear).Methods(http.MethodDelete)

	// Raw entry access
	api.HandleFunc("/cache/entries/{key:.+}", s.handleGetEntry).Methods(http.MethodGet)
	api.HandleFunc("/cache/entries/{key:.+}", s.handleSetEntry).Methods(http.MethodPut)
	api.HandleFunc("/cache/entries/{key:.+}", s.handleInvalidateEntry).Methods(http.MethodDelete)

	if s.deps.Loader != nil && s.deps.Fetcher != nil {
		api.HandleFunc("/tables/{entity:[a-z_]+}", s.handleTable).Methods(http.MethodGet)
	}

	return router
}

// persistenceReporter is implemented by caches that can lose their storage
type persistenceReporter interface {
	MemoryOnly() bool
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	persistence := "ok"
	if reporter, ok := s.deps.Cache.(persistenceReporter); ok && reporter.MemoryOnly() {
		persistence = "memory_only"
	}

	s.writeResponse(w, map[string]interface{}{
		"status":      "healthy",
		"persistence": persistence,
		"time":        time.Now().UTC(),
	})
}

// parseRequest parses JSON request body, rejecting unknown fields
func (s *Server) parseRequest(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
