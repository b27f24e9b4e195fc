// internal/upload/client.go
package upload

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/internal/storage"
	"github.com/tendant/drawing-thumbnailer/internal/store"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// KeyScheme decides where previews are written.
type KeyScheme string

const (
	// KeyIdempotent writes {prefix}{drawingID}.jpg; regeneration overwrites.
	KeyIdempotent KeyScheme = "idempotent"
	// KeyTimestamped writes {prefix}{unixMillis}-{baseName}.jpg, one object
	// per derivation.
	KeyTimestamped KeyScheme = "timestamped"
)

const DefaultPrefix = "thumbnails/"

// Client moves bytes between the object store and the drawing records:
// originals in, previews out, plus the preview key on the record.
type Client struct {
	objects storage.ObjectStore
	docs    store.Repository
	prefix  string
	scheme  KeyScheme
	now     func() time.Time
}

type Options struct {
	Prefix string
	Scheme KeyScheme
}

func NewClient(objects storage.ObjectStore, docs store.Repository, opts Options) *Client {
	c := &Client{
		objects: objects,
		docs:    docs,
		prefix:  opts.Prefix,
		scheme:  opts.Scheme,
		now:     time.Now,
	}
	if c.prefix == "" {
		c.prefix = DefaultPrefix
	}
	if !strings.HasSuffix(c.prefix, "/") {
		c.prefix += "/"
	}
	if c.scheme == "" {
		c.scheme = KeyIdempotent
	}
	return c
}

// ParseKeyScheme accepts the configured scheme name.
func ParseKeyScheme(s string) (KeyScheme, error) {
	switch KeyScheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyIdempotent:
		return KeyIdempotent, nil
	case KeyTimestamped:
		return KeyTimestamped, nil
	default:
		return "", fmt.Errorf("unknown thumbnail key scheme %q", s)
	}
}

// PreviewReference points at stored preview bytes.
type PreviewReference struct {
	DocumentID string `json:"drawing_id"`
	Key        string `json:"thumbnail_path"`
	URL        string `json:"thumbnail_url,omitempty"`
	Size       int    `json:"size"`
}

// PreviewKey returns the key a new preview of doc is written to.
func (c *Client) PreviewKey(doc *store.SourceDocument) string {
	if c.scheme == KeyTimestamped {
		base := strings.TrimSuffix(path.Base(doc.FileName), path.Ext(doc.FileName))
		if base == "" || base == "." || base == "/" {
			base = doc.ID
		}
		return fmt.Sprintf("%s%d-%s.jpg", c.prefix, c.now().UnixMilli(), base)
	}
	return c.prefix + doc.ID + ".jpg"
}

// PublicURL returns the URL key is served under.
func (c *Client) PublicURL(key string) string { return c.objects.PublicURL(key) }

// OriginalKey names the object an uploaded original is stored under.
func (c *Client) OriginalKey(fileName string) string {
	return fmt.Sprintf("%d-%s", c.now().UnixMilli(), path.Base(fileName))
}

// StoreOriginal writes an uploaded file and returns its key.
func (c *Client) StoreOriginal(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	key := c.OriginalKey(fileName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := c.objects.Put(ctx, key, data, contentType); err != nil {
		return "", failure.New(failure.StorageWriteError, "store original", err)
	}
	return key, nil
}

// FetchSource downloads the original bytes of doc.
func (c *Client) FetchSource(ctx context.Context, doc *store.SourceDocument) ([]byte, error) {
	return c.FetchObject(ctx, doc.StorageKey)
}

// FetchObject downloads any object by key.
func (c *Client) FetchObject(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, failure.Errorf(failure.UpstreamFetchError, "fetch source", "no storage key")
	}
	data, err := c.objects.Get(ctx, key)
	if err != nil {
		return nil, failure.New(failure.UpstreamFetchError, "fetch source "+key, err)
	}
	return data, nil
}

// FetchPreview returns the stored preview of doc, or storage.ErrNotFound
// when it has none.
func (c *Client) FetchPreview(ctx context.Context, doc *store.SourceDocument) ([]byte, error) {
	if !doc.HasPreview() {
		return nil, storage.ErrNotFound
	}
	return c.objects.Get(ctx, *doc.PreviewKey)
}

// AttachPreview stores data and records its key on doc. When the write
// succeeds but the record update fails, the reference is returned together
// with an AssociationPartialFailure so the caller can retry with Associate
// instead of deriving again.
func (c *Client) AttachPreview(ctx context.Context, doc *store.SourceDocument, data []byte) (*PreviewReference, error) {
	if len(data) == 0 {
		return nil, failure.Errorf(failure.InvalidInput, "attach preview", "empty preview")
	}

	key := c.PreviewKey(doc)
	if err := c.objects.Put(ctx, key, data, schema.PreviewMimeType); err != nil {
		return nil, failure.New(failure.StorageWriteError, "store preview "+key, err)
	}

	ref := &PreviewReference{
		DocumentID: doc.ID,
		Key:        key,
		URL:        c.objects.PublicURL(key),
		Size:       len(data),
	}
	if err := c.Associate(ctx, ref); err != nil {
		return ref, err
	}
	return ref, nil
}

// Associate records ref.Key as the preview of ref.DocumentID.
func (c *Client) Associate(ctx context.Context, ref *PreviewReference) error {
	if ref == nil || ref.DocumentID == "" || ref.Key == "" {
		return failure.Errorf(failure.InvalidInput, "associate preview", "incomplete preview reference")
	}
	if err := c.docs.SetPreviewKey(ctx, ref.DocumentID, ref.Key); err != nil {
		return failure.New(failure.AssociationPartialFailure, "associate preview "+ref.Key, err)
	}
	return nil
}

// IsPartial reports whether err left a stored but unrecorded preview.
func IsPartial(err error) bool {
	return failure.Is(err, failure.AssociationPartialFailure)
}
