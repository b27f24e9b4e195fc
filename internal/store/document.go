// Package store keeps the drawing records previews are associated with.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

var ErrNotFound = errors.New("drawing not found")

// SourceDocument is one uploaded drawing. PreviewKey stays nil until a
// preview has been derived and stored.
type SourceDocument struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	Size       int64     `json:"size"`
	StorageKey string    `json:"storage_key"`
	PreviewKey *string   `json:"preview_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// Kind classifies the document from its declared type and file name.
func (d *SourceDocument) Kind() schema.MediaKind {
	return schema.KindForDocument(d.FileType, d.FileName)
}

func (d *SourceDocument) HasPreview() bool {
	return d.PreviewKey != nil && *d.PreviewKey != ""
}

// Repository persists SourceDocuments. Only storage association calls
// SetPreviewKey.
type Repository interface {
	Create(ctx context.Context, doc *SourceDocument) error
	Get(ctx context.Context, id string) (*SourceDocument, error)
	FindByStorageKey(ctx context.Context, key string) (*SourceDocument, error)
	List(ctx context.Context, limit int) ([]*SourceDocument, error)
	// ListMissingPreviews returns every document without a preview key,
	// newest first.
	ListMissingPreviews(ctx context.Context) ([]*SourceDocument, error)
	SetPreviewKey(ctx context.Context, id, key string) error
}
