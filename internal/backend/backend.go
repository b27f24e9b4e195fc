// Package backend opens the object store and drawing repository selected by
// BACKEND_KIND.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/drawing-thumbnailer/internal/config"
	"github.com/tendant/drawing-thumbnailer/internal/storage"
	"github.com/tendant/drawing-thumbnailer/internal/store"
	"github.com/tendant/drawing-thumbnailer/internal/supabase"
)

type Backend struct {
	Kind    string
	Objects storage.ObjectStore
	Docs    store.Repository

	closers []func()
}

func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Kind: cfg.BackendKind}

	switch cfg.BackendKind {
	case config.BackendSupabase:
		objects, drawings := supabase.New(cfg.BackendURL, cfg.BackendServiceKey, cfg.StorageBucket)
		b.Objects, b.Docs = objects, drawings

	case config.BackendMinio:
		objects, err := storage.NewMinioStore(ctx, cfg.BackendURL, cfg.MinioAccessKey, cfg.BackendServiceKey, cfg.StorageBucket)
		if err != nil {
			return nil, err
		}
		b.Objects = objects
		if err := b.openPostgres(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}

	case config.BackendGCS:
		objects, err := storage.NewGCSStore(ctx, cfg.StorageBucket, cfg.BackendServiceKey, cfg.BackendURL)
		if err != nil {
			return nil, err
		}
		b.Objects = objects
		b.closers = append(b.closers, func() { _ = objects.Close() })
		if err := b.openPostgres(ctx, cfg.DatabaseURL); err != nil {
			b.Close()
			return nil, err
		}

	case config.BackendMemory:
		b.Objects = storage.NewMemoryStore("")
		b.Docs = store.NewMemoryRepository()

	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.BackendKind)
	}

	logger.Info("backend ready", "kind", b.Kind, "bucket", cfg.StorageBucket)
	return b, nil
}

func (b *Backend) openPostgres(ctx context.Context, databaseURL string) error {
	pool, err := store.OpenPostgres(ctx, databaseURL)
	if err != nil {
		return err
	}
	b.Docs = store.NewPostgresRepository(pool)
	b.closers = append(b.closers, pool.Close)
	return nil
}

// Pool returns the Postgres pool behind Docs, if any.
func (b *Backend) Pool() *pgxpool.Pool {
	if r, ok := b.Docs.(*store.PostgresRepository); ok {
		return r.Pool()
	}
	return nil
}
