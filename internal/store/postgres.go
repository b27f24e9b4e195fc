package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the drawings table when it does not exist yet.
const Schema = `
CREATE TABLE IF NOT EXISTS drawings (
	id            UUID PRIMARY KEY,
	file_name     TEXT NOT NULL,
	file_type     TEXT NOT NULL DEFAULT '',
	file_size     BIGINT NOT NULL DEFAULT 0,
	file_url      TEXT NOT NULL,
	thumbnail_url TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS drawings_missing_thumbnail_idx
	ON drawings (created_at DESC) WHERE thumbnail_url IS NULL;
`

const selectColumns = `id, file_name, file_type, file_size, file_url, thumbnail_url, created_at`

// PostgresRepository stores drawings in Postgres. The original's key lives in
// file_url and the preview key in thumbnail_url.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Pool() *pgxpool.Pool { return r.pool }

// OpenPostgres connects, pings and applies Schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return pool, nil
}

func (r *PostgresRepository) Create(ctx context.Context, doc *SourceDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO drawings (id, file_name, file_type, file_size, file_url)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		doc.ID, doc.FileName, doc.FileType, doc.Size, doc.StorageKey,
	).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert drawing: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*SourceDocument, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM drawings WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PostgresRepository) FindByStorageKey(ctx context.Context, key string) (*SourceDocument, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM drawings WHERE file_url = $1 LIMIT 1`, key)
	return scanOne(row)
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*SourceDocument, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM drawings ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	return scanAll(rows)
}

func (r *PostgresRepository) ListMissingPreviews(ctx context.Context) ([]*SourceDocument, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM drawings WHERE thumbnail_url IS NULL ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list drawings without thumbnail: %w", err)
	}
	return scanAll(rows)
}

func (r *PostgresRepository) SetPreviewKey(ctx context.Context, id, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE drawings SET thumbnail_url = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("update thumbnail_url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOne(row pgx.Row) (*SourceDocument, error) {
	var d SourceDocument
	err := row.Scan(&d.ID, &d.FileName, &d.FileType, &d.Size, &d.StorageKey, &d.PreviewKey, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan drawing: %w", err)
	}
	return &d, nil
}

func scanAll(rows pgx.Rows) ([]*SourceDocument, error) {
	defer rows.Close()
	var out []*SourceDocument
	for rows.Next() {
		d, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drawings: %w", err)
	}
	return out, nil
}
