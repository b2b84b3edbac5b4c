package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Database.Path != "./data/showsift.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Quality.Allow4K {
		t.Error("Quality.Allow4K should default to false")
	}
	if cfg.Resolver.Concurrency != 4 {
		t.Errorf("Resolver.Concurrency = %d, want 4", cfg.Resolver.Concurrency)
	}
	if cfg.Resolver.SimilarityThreshold != 0.85 {
		t.Errorf("Resolver.SimilarityThreshold = %f, want 0.85", cfg.Resolver.SimilarityThreshold)
	}
	if cfg.TMDB.CacheTTL != 24*time.Hour {
		t.Errorf("TMDB.CacheTTL = %s, want 24h", cfg.TMDB.CacheTTL)
	}
	if cfg.OpenRouter.FastModel == "" || cfg.OpenRouter.DeepModel == "" {
		t.Error("OpenRouter models should have defaults")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SHOWSIFT_SERVER_PORT", "9090")
	t.Setenv("SHOWSIFT_QUALITY_ALLOW_4K", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 from env", cfg.Server.Port)
	}
	if !cfg.Quality.Allow4K {
		t.Error("Quality.Allow4K should be true from env")
	}
}

func TestLoad_BareKeyAliases(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "tmdb-test-key")
	t.Setenv("OPENROUTER_API_KEY", "or-test-key")
	t.Setenv("RAPIDAPI_KEY", "rapid-test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TMDB.APIKey != "tmdb-test-key" {
		t.Errorf("TMDB.APIKey = %q, want alias value", cfg.TMDB.APIKey)
	}
	if cfg.OpenRouter.APIKey != "or-test-key" {
		t.Errorf("OpenRouter.APIKey = %q, want alias value", cfg.OpenRouter.APIKey)
	}
	if cfg.IMDB.APIKey != "rapid-test-key" {
		t.Errorf("IMDB.APIKey = %q, want alias value", cfg.IMDB.APIKey)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 7070
quality:
  allow_4k: true
resolver:
  concurrency: 2
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from file", cfg.Server.Port)
	}
	if !cfg.Quality.Allow4K {
		t.Error("Quality.Allow4K should be true from file")
	}
	if cfg.Resolver.Concurrency != 2 {
		t.Errorf("Resolver.Concurrency = %d, want 2 from file", cfg.Resolver.Concurrency)
	}
	// Untouched keys keep defaults
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoad_InvalidConfigFails(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SHOWSIFT_SERVER_PORT", "0"},
		{"bad similarity threshold", "SHOWSIFT_RESOLVER_SIMILARITY_THRESHOLD", "1.5"},
		{"zero concurrency", "SHOWSIFT_RESOLVER_CONCURRENCY", "0"},
		{"unknown log format", "SHOWSIFT_LOGGING_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestAddress(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 9000}
	if got := cfg.Address(); got != "0.0.0.0:9000" {
		t.Errorf("Address() = %q, want 0.0.0.0:9000", got)
	}
}
