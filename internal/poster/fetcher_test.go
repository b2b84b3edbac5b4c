package poster

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/config"
)

func newTestFetcher(t *testing.T, maxBytes int64) *Fetcher {
	t.Helper()
	fetcher, err := NewFetcher(config.PosterConfig{
		Dir:      t.TempDir(),
		MaxBytes: maxBytes,
		Timeout:  5 * time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	return fetcher
}

func imageServer(t *testing.T, contentType string, body []byte, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}))
}

func TestFetcher_Fetch(t *testing.T) {
	body := []byte("jpeg-bytes")
	server := imageServer(t, "image/jpeg", body, nil)
	defer server.Close()

	fetcher := newTestFetcher(t, 0)
	path, err := fetcher.Fetch(context.Background(), 7, server.URL+"/posters/be-my-princess.jpg")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if base := filepath.Base(path); !strings.HasPrefix(base, "series_7_") {
		t.Errorf("cached file %q should be keyed by series id", base)
	}
	if filepath.Ext(path) != ".jpg" {
		t.Errorf("Ext(%q) = %q, want .jpg", path, filepath.Ext(path))
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("cached bytes = %q, want %q", got, body)
	}
}

func TestFetcher_CacheHit(t *testing.T) {
	calls := 0
	server := imageServer(t, "image/jpeg", []byte("jpeg-bytes"), &calls)
	defer server.Close()

	fetcher := newTestFetcher(t, 0)
	url := server.URL + "/poster.jpg"

	first, err := fetcher.Fetch(context.Background(), 7, url)
	if err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}
	second, err := fetcher.Fetch(context.Background(), 7, url)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}

	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}
}

func TestFetcher_DifferentURLsDifferentFiles(t *testing.T) {
	server := imageServer(t, "image/jpeg", []byte("jpeg-bytes"), nil)
	defer server.Close()

	fetcher := newTestFetcher(t, 0)
	first, err := fetcher.Fetch(context.Background(), 7, server.URL+"/poster-v1.jpg")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := fetcher.Fetch(context.Background(), 7, server.URL+"/poster-v2.jpg")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if first == second {
		t.Errorf("different URLs share cache file %q", first)
	}
}

func TestFetcher_PNGKeepsExtension(t *testing.T) {
	server := imageServer(t, "image/png", []byte("png-bytes"), nil)
	defer server.Close()

	fetcher := newTestFetcher(t, 0)
	path, err := fetcher.Fetch(context.Background(), 3, server.URL+"/art/poster.PNG")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if filepath.Ext(path) != ".png" {
		t.Errorf("Ext(%q) = %q, want .png", path, filepath.Ext(path))
	}
}

func TestFetcher_NotImage(t *testing.T) {
	server := imageServer(t, "text/html", []byte("<html>login page</html>"), nil)
	defer server.Close()

	fetcher := newTestFetcher(t, 0)
	_, err := fetcher.Fetch(context.Background(), 3, server.URL+"/poster.jpg")
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("Fetch() error = %v, want ErrNotImage", err)
	}
}

func TestFetcher_TooLarge(t *testing.T) {
	server := imageServer(t, "image/jpeg", []byte("twenty bytes of data"), nil)
	defer server.Close()

	fetcher := newTestFetcher(t, 10)
	_, err := fetcher.Fetch(context.Background(), 3, server.URL+"/poster.jpg")
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
	}
}

func TestFetcher_NotFound(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, 0)
	_, err := fetcher.Fetch(context.Background(), 3, server.URL+"/gone.jpg")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch() error = %v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Errorf("404 should not be retried, got %d calls", calls)
	}
}

func TestFetcher_RetriesServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, 0)
	if _, err := fetcher.Fetch(context.Background(), 3, server.URL+"/poster.jpg"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("server calls = %d, want 2", calls)
	}
}

func TestFetcher_EmptyURL(t *testing.T) {
	fetcher := newTestFetcher(t, 0)
	if _, err := fetcher.Fetch(context.Background(), 3, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch() error = %v, want ErrNotFound", err)
	}
}
