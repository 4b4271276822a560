package previewer

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPublishServesPayload(t *testing.T) {
	s := New(t.TempDir(), nil)
	defer s.Shutdown(context.Background())

	payload := []byte("%PDF-1.4 test")
	url, err := s.Publish(payload)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.HasPrefix(url, "http://127.0.0.1:") {
		t.Fatalf("url = %q, want loopback address", url)
	}

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(payload) {
		t.Errorf("body = %q, want payload", body)
	}
}

func TestPublishRotatesPreviews(t *testing.T) {
	s := New(t.TempDir(), nil)
	defer s.Shutdown(context.Background())

	url1, err := s.Publish([]byte("first"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	url2, err := s.Publish([]byte("second"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url1 == url2 {
		t.Errorf("both publishes produced %q, want distinct URLs", url1)
	}

	resp, err := http.Get(url2)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "second" {
		t.Errorf("body = %q, want second", body)
	}
}

func TestHandlerRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	defer s.Shutdown(context.Background())

	if _, err := s.Publish([]byte("x")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	resp, err := http.Get(s.BaseURL() + "/previews/..%2Fsecret.pdf")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp2, err := http.Get(s.BaseURL() + "/previews/notpdf.txt")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for non-pdf", resp2.StatusCode)
	}
}

func TestShutdownRemovesPreviews(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	if _, err := s.Publish([]byte("x")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "preview-*.pdf"))
	if len(matches) != 0 {
		t.Errorf("previews left after shutdown: %v", matches)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("previews dir removed entirely: %v", err)
	}
}
