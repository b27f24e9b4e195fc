// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/tendant/drawing-thumbnailer/internal/converters"
	"github.com/tendant/drawing-thumbnailer/internal/upload"
)

const (
	BackendSupabase = "supabase"
	BackendMinio    = "minio"
	BackendGCS      = "gcs"
	BackendMemory   = "memory"
)

type Config struct {
	BackendKind       string `env:"BACKEND_KIND" env-default:"supabase"`
	BackendURL        string `env:"BACKEND_URL"`
	BackendServiceKey string `env:"BACKEND_SERVICE_KEY"`
	StorageBucket     string `env:"STORAGE_BUCKET" env-default:"drawings"`
	DatabaseURL       string `env:"DATABASE_URL"`
	MinioAccessKey    string `env:"MINIO_ACCESS_KEY"`

	MaxWidth    int     `env:"THUMBNAIL_MAX_WIDTH" env-default:"400"`
	Quality     int     `env:"THUMBNAIL_QUALITY" env-default:"80"`
	RenderScale float64 `env:"PDF_RENDER_SCALE" env-default:"1.5"`
	Rasterizer  string  `env:"RASTERIZER" env-default:"fitz"`
	Prefix      string  `env:"THUMBNAIL_PREFIX" env-default:"thumbnails/"`
	KeyScheme   string  `env:"THUMBNAIL_KEY_SCHEME" env-default:"idempotent"`

	HTTPAddr       string        `env:"HTTP_ADDR" env-default:":8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"60s"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" env-default:"52428800"`
	DeriveInline   bool          `env:"DERIVE_INLINE" env-default:"true"`

	NATSURL         string `env:"NATS_URL"`
	UploadedSubject string `env:"SUBJECT_DRAWING_UPLOADED" env-default:"drawings.uploaded"`
	DoneSubject     string `env:"SUBJECT_THUMBNAIL_DONE" env-default:"drawings.thumbnail.done"`
	WorkerQueue     string `env:"WORKER_QUEUE" env-default:"thumbnail-workers"`

	RedisURL        string        `env:"REDIS_URL"`
	PreviewCacheTTL time.Duration `env:"PREVIEW_CACHE_TTL" env-default:"24h"`

	BackfillDelay time.Duration `env:"BACKFILL_DELAY" env-default:"500ms"`
}

// Load reads .env when present, then the environment, then validates.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var ErrMissingBackend = errors.New("BACKEND_URL and BACKEND_SERVICE_KEY are required")

func (c *Config) Validate() error {
	c.BackendKind = strings.ToLower(strings.TrimSpace(c.BackendKind))
	if c.BackendKind == "" {
		c.BackendKind = BackendSupabase
	}
	switch c.BackendKind {
	case BackendSupabase, BackendMinio, BackendGCS:
		if c.BackendKind != BackendGCS {
			if err := c.RequireBackend(); err != nil {
				return err
			}
		}
		if c.BackendKind != BackendSupabase && c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for BACKEND_KIND=%s", c.BackendKind)
		}
		if c.BackendKind == BackendMinio && c.MinioAccessKey == "" {
			return errors.New("MINIO_ACCESS_KEY is required for BACKEND_KIND=minio")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown BACKEND_KIND %q", c.BackendKind)
	}

	if err := positive("THUMBNAIL_MAX_WIDTH", c.MaxWidth); err != nil {
		return err
	}
	if c.Quality <= 0 || c.Quality > 100 {
		return fmt.Errorf("THUMBNAIL_QUALITY must be between 1 and 100 (got %d)", c.Quality)
	}
	if c.RenderScale <= 0 {
		return fmt.Errorf("PDF_RENDER_SCALE must be greater than zero (got %g)", c.RenderScale)
	}
	if _, err := converters.New(c.Rasterizer); err != nil {
		return err
	}
	if _, err := upload.ParseKeyScheme(c.KeyScheme); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be greater than zero (got %s)", c.RequestTimeout)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be greater than zero (got %d)", c.MaxUploadBytes)
	}
	if c.BackfillDelay < 0 {
		return fmt.Errorf("BACKFILL_DELAY must not be negative (got %s)", c.BackfillDelay)
	}
	return nil
}

// RequireBackend checks the two variables every backend-backed binary needs.
func (c *Config) RequireBackend() error {
	if strings.TrimSpace(c.BackendURL) == "" || strings.TrimSpace(c.BackendServiceKey) == "" {
		return ErrMissingBackend
	}
	return nil
}

func (c *Config) Scheme() upload.KeyScheme {
	s, _ := upload.ParseKeyScheme(c.KeyScheme)
	return s
}

func positive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return nil
}
