// Package dashboard serves the static dashboard directory over HTTP. The
// front-end polls the matrix document, so responses carry no-cache headers
// to keep every poll fresh.
package dashboard

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/journalbrand/compliance/internal/telemetry"
	"github.com/journalbrand/compliance/internal/ui"
)

// Server is the static-file HTTP server for the dashboard directory.
type Server struct {
	dir     string
	port    int
	printer *ui.Printer
	emitter *telemetry.Emitter
	srv     *http.Server
	ln      net.Listener
}

// New creates a dashboard server for dir on the given port. Port 0 picks a
// free port; use Addr to discover it.
func New(dir string, port int, printer *ui.Printer, emitter *telemetry.Emitter) *Server {
	return &Server{dir: dir, port: port, printer: printer, emitter: emitter}
}

// Start begins serving in a background goroutine. It blocks only until the
// listener is ready to accept connections.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("dashboard: listen on port %d: %w", s.port, err)
	}
	s.ln = ln

	s.srv = &http.Server{Handler: noCache(http.FileServer(http.Dir(s.dir)))}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.printer.Errorf("dashboard: serve error: %v", err)
		}
	}()

	s.printer.Serverf("dashboard available at http://localhost:%d", s.Port())
	_ = s.emitter.Emit(telemetry.Event{
		Kind: telemetry.KindServerStart,
		Data: map[string]any{"port": s.Port(), "dir": s.dir},
	})
	return nil
}

// Addr returns the listener address, useful for tests with port 0.
func (s *Server) Addr() net.Addr {
	if s.ln != nil {
		return s.ln.Addr()
	}
	return nil
}

// Port returns the actual listening port.
func (s *Server) Port() int {
	if s.ln == nil {
		return s.port
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// noCache disables client and proxy caching. The dashboard polls the matrix
// document on an interval; a cached copy would hide fresh results.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
