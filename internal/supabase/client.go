// Package supabase adapts the hosted backend to the storage and repository
// interfaces: storage-go for bucket objects, postgrest-go for the drawings
// table.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/tendant/drawing-thumbnailer/internal/storage"
)

// New returns the object and row adapters for one project, both
// authenticated with the service-role key.
func New(baseURL, serviceKey, bucket string) (*Storage, *Drawings) {
	return NewStorage(baseURL, serviceKey, bucket), NewDrawings(baseURL, serviceKey)
}

func authHeaders(serviceKey string) map[string]string {
	return map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	}
}

// Storage implements storage.ObjectStore for one bucket.
type Storage struct {
	client *storage_go.Client
	bucket string
}

var _ storage.ObjectStore = (*Storage)(nil)

func NewStorage(baseURL, serviceKey, bucket string) *Storage {
	base := strings.TrimSuffix(baseURL, "/") + "/storage/v1"
	return &Storage{
		client: storage_go.NewClient(base, serviceKey, authHeaders(serviceKey)),
		bucket: bucket,
	}
}

// Get downloads key from the bucket.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.DownloadFile(s.bucket, strings.TrimPrefix(key, "/"))
	if err != nil {
		if isNotFound(err.Error()) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	if msg, ok := errorBody(data); ok {
		if isNotFound(msg) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("download %s: %s", key, msg)
	}
	return data, nil
}

// Put uploads with upsert so regenerated previews overwrite in place.
func (s *Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, strings.TrimPrefix(key, "/"), bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *Storage) PublicURL(key string) string {
	return s.client.GetPublicUrl(s.bucket, strings.TrimPrefix(key, "/")).SignedURL
}

// errorBody reports whether a download returned the storage API's JSON error
// document instead of object bytes.
func errorBody(data []byte) (string, bool) {
	if len(data) == 0 || data[0] != '{' {
		return "", false
	}
	var e struct {
		StatusCode string `json:"statusCode"`
		Error      string `json:"error"`
		Message    string `json:"message"`
	}
	if json.Unmarshal(data, &e) != nil || e.StatusCode == "" || e.Error == "" {
		return "", false
	}
	return e.StatusCode + " " + e.Error + ": " + e.Message, true
}

// The storage API reports a missing object as 400 with "not_found" in older
// deployments and 404 in newer ones.
func isNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not_found") || strings.Contains(msg, "not found") || strings.HasPrefix(msg, "404")
}
