package supabase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/tendant/drawing-thumbnailer/internal/store"
)

const (
	drawingsTable  = "drawings"
	drawingColumns = "id,file_name,file_type,file_size,file_url,thumbnail_url,created_at"
)

// drawingRow is the subset of the drawings table this service reads.
type drawingRow struct {
	ID           string    `json:"id,omitempty"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	FileURL      string    `json:"file_url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type newDrawing struct {
	ID       string `json:"id,omitempty"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	FileURL  string `json:"file_url"`
}

func (r drawingRow) document() *store.SourceDocument {
	return &store.SourceDocument{
		ID:         r.ID,
		FileName:   r.FileName,
		FileType:   r.FileType,
		Size:       r.FileSize,
		StorageKey: r.FileURL,
		PreviewKey: r.ThumbnailURL,
		CreatedAt:  r.CreatedAt,
	}
}

func documents(rows []drawingRow) []*store.SourceDocument {
	docs := make([]*store.SourceDocument, len(rows))
	for i, row := range rows {
		docs[i] = row.document()
	}
	return docs
}

// Drawings implements store.Repository over the drawings table.
type Drawings struct {
	client *postgrest.Client
}

var _ store.Repository = (*Drawings)(nil)

func NewDrawings(baseURL, serviceKey string) *Drawings {
	base := strings.TrimSuffix(baseURL, "/") + "/rest/v1"
	return &Drawings{client: postgrest.NewClient(base, "public", authHeaders(serviceKey))}
}

func (d *Drawings) selectOne(ctx context.Context, column, value string) (*store.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []drawingRow
	_, err := d.client.From(drawingsTable).
		Select(drawingColumns, "", false).
		Eq(column, value).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select drawing by %s: %w", column, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].document(), nil
}

func (d *Drawings) Create(ctx context.Context, doc *store.SourceDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := newDrawing{
		ID:       doc.ID,
		FileName: doc.FileName,
		FileType: doc.FileType,
		FileSize: doc.Size,
		FileURL:  doc.StorageKey,
	}

	var rows []drawingRow
	_, err := d.client.From(drawingsTable).
		Insert([]newDrawing{row}, false, "", "representation", "").
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("insert drawing: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("insert drawing: empty representation")
	}
	doc.ID = rows[0].ID
	doc.CreatedAt = rows[0].CreatedAt
	return nil
}

func (d *Drawings) Get(ctx context.Context, id string) (*store.SourceDocument, error) {
	return d.selectOne(ctx, "id", id)
}

func (d *Drawings) FindByStorageKey(ctx context.Context, key string) (*store.SourceDocument, error) {
	return d.selectOne(ctx, "file_url", key)
}

func (d *Drawings) List(ctx context.Context, limit int) ([]*store.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var rows []drawingRow
	_, err := d.client.From(drawingsTable).
		Select(drawingColumns, "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	return documents(rows), nil
}

// ListMissingPreviews returns drawings without a thumbnail, newest first with
// ties broken by id.
func (d *Drawings) ListMissingPreviews(ctx context.Context) ([]*store.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []drawingRow
	_, err := d.client.From(drawingsTable).
		Select(drawingColumns, "", false).
		Is("thumbnail_url", "null").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list drawings without thumbnail: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return documents(rows), nil
}

func (d *Drawings) SetPreviewKey(ctx context.Context, id, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var rows []drawingRow
	_, err := d.client.From(drawingsTable).
		Update(map[string]string{"thumbnail_url": key}, "representation", "").
		Eq("id", id).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("update thumbnail_url: %w", err)
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}
