package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Server hosts the service's HTTP endpoints: the chat API alongside the
// health and metrics endpoints.
type Server struct {
	httpServer *http.Server
	port       int
	mux        *http.ServeMux
}

// NewServer creates a server with the standard observability endpoints
// mounted. Application handlers are added with Handle before Start.
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler())
	mux.HandleFunc("/health/live", LivenessHandler())
	mux.HandleFunc("/health/ready", ReadinessHandler())
	mux.Handle("/metrics", MetricsHandler())

	return &Server{
		port: port,
		mux:  mux,
	}
}

// Handle mounts an application handler on the server's mux.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
