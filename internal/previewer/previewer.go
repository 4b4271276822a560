// Package previewer serves generated certificate previews over a
// loopback HTTP server so the operator can open them in a browser.
package previewer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Server writes preview payloads to a directory and serves them on
// 127.0.0.1. The listener starts lazily on the first Publish.
type Server struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	baseURL  string
	sequence int
}

// New creates a previewer that stores payloads under dir.
func New(dir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{dir: dir, logger: logger}
}

// Publish stores data as the current preview and returns an openable
// URL for it.
func (s *Server) Publish(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create previews directory: %w", err)
	}

	s.sequence++
	name := fmt.Sprintf("preview-%d.pdf", s.sequence)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write preview: %w", err)
	}

	if err := s.startLocked(); err != nil {
		return "", err
	}

	url := s.baseURL + "/previews/" + name
	s.logger.Debug("preview published", "name", name, "bytes", len(data), "url", url)
	return url, nil
}

// startLocked starts the loopback server if it is not running.
// Must be called with the mutex held.
func (s *Server) startLocked() error {
	if s.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/previews/{name}", s.handlePreview)

	s.server = &http.Server{
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.baseURL = "http://" + ln.Addr().String()

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("previewer server stopped", "error", err)
		}
	}()

	s.logger.Debug("previewer listening", "addr", ln.Addr().String())
	return nil
}

// handlePreview serves one stored preview file.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".pdf") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// BaseURL returns the server address, empty before the first Publish.
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL
}

// Shutdown stops the server and removes stored previews.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.baseURL = ""
	s.mu.Unlock()

	matches, _ := filepath.Glob(filepath.Join(s.dir, "preview-*.pdf"))
	for _, m := range matches {
		_ = os.Remove(m)
	}

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
