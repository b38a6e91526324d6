package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startServer(t *testing.T, dir string) *Server {
	t.Helper()
	srv := New(dir, 0, nil, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return srv
}

func TestServerServesMatrixDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	body := `{"@context": "ctx.jsonld", "@graph": []}`
	if err := os.WriteFile(filepath.Join(dir, "compliance_matrix.jsonld"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := startServer(t, dir)
	if srv.Addr() == nil {
		t.Fatal("expected non-nil listener address after Start")
	}

	url := fmt.Sprintf("http://%s/compliance_matrix.jsonld", srv.Addr().String())
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != body {
		t.Errorf("body = %q, want %q", got, body)
	}
}

func TestServerDisablesCaching(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := startServer(t, dir)

	url := fmt.Sprintf("http://%s/", srv.Addr().String())
	resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if p := resp.Header.Get("Pragma"); p != "no-cache" {
		t.Errorf("Pragma = %q", p)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := New(t.TempDir(), 0, nil, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	url := fmt.Sprintf("http://%s/", srv.Addr().String())
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET before shutdown: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, err := client.Get(url); err == nil {
		t.Error("expected error after shutdown, got nil")
	}
}

func TestServerStopWithoutStart(t *testing.T) {
	t.Parallel()

	srv := New(t.TempDir(), 0, nil, nil)
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop without Start: %v", err)
	}
}
