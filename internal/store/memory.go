package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a Repository backed by a map.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]*SourceDocument
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]*SourceDocument)}
}

func (r *MemoryRepository) Create(ctx context.Context, doc *SourceDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	r.docs[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*SourceDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (r *MemoryRepository) FindByStorageKey(ctx context.Context, key string) (*SourceDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.docs {
		if doc.StorageKey == key {
			return clone(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) List(ctx context.Context, limit int) ([]*SourceDocument, error) {
	docs := r.sorted(func(*SourceDocument) bool { return true })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (r *MemoryRepository) ListMissingPreviews(ctx context.Context) ([]*SourceDocument, error) {
	return r.sorted(func(d *SourceDocument) bool { return !d.HasPreview() }), nil
}

func (r *MemoryRepository) SetPreviewKey(ctx context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.PreviewKey = &key
	return nil
}

func (r *MemoryRepository) sorted(keep func(*SourceDocument) bool) []*SourceDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SourceDocument, 0, len(r.docs))
	for _, doc := range r.docs {
		if keep(doc) {
			out = append(out, clone(doc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func clone(d *SourceDocument) *SourceDocument {
	c := *d
	if d.PreviewKey != nil {
		k := *d.PreviewKey
		c.PreviewKey = &k
	}
	return &c
}
