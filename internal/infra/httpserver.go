package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server with the API's timeout policy and a graceful
// stop. Design jobs run in the worker, so API handlers stay short; the read
// and write timeouts only need to cover multipart uploads, and the stop
// deadline bounds how long in-flight polls may hold a draining server.
type HTTPServer struct {
	server      *http.Server
	stopTimeout time.Duration
}

// NewHTTPServer builds a server for the given handler from the config's HTTP
// timeouts. The idle timeout doubles as the graceful-stop deadline.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
		stopTimeout: cfg.HTTPIdleTimeout,
	}
}

// Addr reports the listen address the server was configured with.
func (s *HTTPServer) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start serves requests in the current goroutine until Stop or a listener
// failure.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	return s.server.ListenAndServe()
}

// Stop drains in-flight requests, waiting at most the configured stop
// timeout before abandoning stragglers.
func (s *HTTPServer) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx := context.Background()
	if s.stopTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stopTimeout)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}
