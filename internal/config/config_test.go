package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/tendant/drawing-thumbnailer/internal/upload"
)

// unset removes key for the duration of the test.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setBackend(t *testing.T) {
	t.Helper()
	unset(t, "BACKEND_KIND", "THUMBNAIL_MAX_WIDTH", "THUMBNAIL_QUALITY", "PDF_RENDER_SCALE",
		"RASTERIZER", "THUMBNAIL_PREFIX", "THUMBNAIL_KEY_SCHEME", "REQUEST_TIMEOUT", "BACKFILL_DELAY", "DERIVE_INLINE", "STORAGE_BUCKET")
	t.Setenv("BACKEND_URL", "https://project.example.co")
	t.Setenv("BACKEND_SERVICE_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setBackend(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.BackendKind != BackendSupabase || cfg.StorageBucket != "drawings" {
		t.Fatalf("unexpected backend: %s %s", cfg.BackendKind, cfg.StorageBucket)
	}
	if cfg.MaxWidth != 400 || cfg.Quality != 80 || cfg.RenderScale != 1.5 {
		t.Fatalf("unexpected thumbnail settings: %d %d %g", cfg.MaxWidth, cfg.Quality, cfg.RenderScale)
	}
	if cfg.RequestTimeout != 60*time.Second || cfg.BackfillDelay != 500*time.Millisecond {
		t.Fatalf("unexpected timings: %s %s", cfg.RequestTimeout, cfg.BackfillDelay)
	}
	if cfg.Prefix != "thumbnails/" || cfg.Scheme() != upload.KeyIdempotent {
		t.Fatalf("unexpected naming: %s %s", cfg.Prefix, cfg.Scheme())
	}
	if !cfg.DeriveInline {
		t.Fatal("derivation should be inline by default")
	}
}

func TestLoadInvalidWidth(t *testing.T) {
	setBackend(t)
	t.Setenv("THUMBNAIL_MAX_WIDTH", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid THUMBNAIL_MAX_WIDTH")
	}
}

func TestValidateRejects(t *testing.T) {
	base := func() Config {
		return Config{
			BackendKind:       BackendSupabase,
			BackendURL:        "https://x",
			BackendServiceKey: "k",
			MaxWidth:          400,
			Quality:           80,
			RenderScale:       1.5,
			Rasterizer:        "fitz",
			KeyScheme:         "idempotent",
			RequestTimeout:    time.Minute,
			MaxUploadBytes:    1 << 20,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.MaxWidth = 0 }},
		{"quality above 100", func(c *Config) { c.Quality = 101 }},
		{"negative scale", func(c *Config) { c.RenderScale = -1 }},
		{"unknown rasterizer", func(c *Config) { c.Rasterizer = "ghostscript" }},
		{"unknown scheme", func(c *Config) { c.KeyScheme = "random" }},
		{"unknown backend", func(c *Config) { c.BackendKind = "s3" }},
		{"minio without database", func(c *Config) { c.BackendKind = BackendMinio; c.MinioAccessKey = "a" }},
		{"minio without access key", func(c *Config) { c.BackendKind = BackendMinio; c.DatabaseURL = "postgres://" }},
		{"negative delay", func(c *Config) { c.BackfillDelay = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
}

func TestLoadMissingBackendSettings(t *testing.T) {
	setBackend(t)
	unset(t, "BACKEND_URL", "BACKEND_SERVICE_KEY")

	if _, err := Load(); !errors.Is(err, ErrMissingBackend) {
		t.Fatalf("expected ErrMissingBackend, got %v", err)
	}
}

func TestMemoryBackendNeedsNoCredentials(t *testing.T) {
	setBackend(t)
	unset(t, "BACKEND_URL", "BACKEND_SERVICE_KEY")
	t.Setenv("BACKEND_KIND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.RequireBackend(); !errors.Is(err, ErrMissingBackend) {
		t.Fatalf("RequireBackend = %v", err)
	}
}
