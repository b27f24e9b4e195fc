package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tendant/drawing-thumbnailer/internal/storage"
	"github.com/tendant/drawing-thumbnailer/internal/store"
)

// fakeBackend serves just enough of the storage API and PostgREST.
type fakeBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	rows    []drawingRow
	patched map[string]string
	queries []string
}

func newFakeBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	fb := &fakeBackend{objects: map[string][]byte{}, patched: map[string]string{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, srv.URL
}

// uploadBody accepts both raw and multipart uploads.
func uploadBody(r *http.Request) []byte {
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if err != nil {
			return nil
		}
		data, _ := io.ReadAll(part)
		return data
	}
	data, _ := io.ReadAll(r.Body)
	return data
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer service-key" || r.Header.Get("apikey") != "service-key" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"401","message":"unauthorized"}`))
		return
	}

	const objPrefix = "/storage/v1/object/drawings/"
	switch {
	case strings.HasPrefix(r.URL.Path, objPrefix):
		key := strings.TrimPrefix(r.URL.Path, objPrefix)
		switch r.Method {
		case http.MethodGet:
			data, ok := f.objects[key]
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
				return
			}
			_, _ = w.Write(data)
		case http.MethodPost, http.MethodPut:
			f.objects[key] = uploadBody(r)
			_, _ = w.Write([]byte(`{"Key":"drawings/` + key + `"}`))
		}
	case r.URL.Path == "/rest/v1/drawings":
		f.queries = append(f.queries, r.URL.RawQuery)
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			out := []drawingRow{}
			for _, row := range f.rows {
				if id := q.Get("id"); id != "" && "eq."+row.ID != id {
					continue
				}
				if u := q.Get("file_url"); u != "" && "eq."+row.FileURL != u {
					continue
				}
				if q.Get("thumbnail_url") == "is.null" && row.ThumbnailURL != nil {
					continue
				}
				out = append(out, row)
			}
			_ = json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var in []drawingRow
			_ = json.NewDecoder(r.Body).Decode(&in)
			in[0].ID = "generated-id"
			in[0].CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			f.rows = append(f.rows, in[0])
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(in)
		case http.MethodPatch:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
			out := []drawingRow{}
			for i := range f.rows {
				if f.rows[i].ID == id {
					k := body["thumbnail_url"]
					f.rows[i].ThumbnailURL = &k
					f.patched[id] = k
					out = append(out, f.rows[i])
				}
			}
			_ = json.NewEncoder(w).Encode(out)
		}
	default:
		http.NotFound(w, r)
	}
}

func TestObjectRoundTrip(t *testing.T) {
	fb, url := newFakeBackend(t)
	objects, _ := New(url, "service-key", "drawings")
	ctx := context.Background()

	if err := objects.Put(ctx, "thumbnails/d1.jpg", []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if string(fb.objects["thumbnails/d1.jpg"]) != "jpeg" {
		t.Fatalf("objects = %v", fb.objects)
	}

	got, err := objects.Get(ctx, "thumbnails/d1.jpg")
	if err != nil || string(got) != "jpeg" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	if _, err := objects.Get(ctx, "thumbnails/missing.jpg"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing object err = %v, want ErrNotFound", err)
	}
}

func TestObjectCanceledContext(t *testing.T) {
	_, url := newFakeBackend(t)
	objects := NewStorage(url, "service-key", "drawings")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := objects.Put(ctx, "k", []byte("x"), "image/jpeg"); !errors.Is(err, context.Canceled) {
		t.Errorf("Put err = %v, want context.Canceled", err)
	}
	if _, err := objects.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get err = %v, want context.Canceled", err)
	}
}

func TestPublicURL(t *testing.T) {
	objects := NewStorage("https://project.example.co/", "k", "drawings")
	got := objects.PublicURL("thumbnails/a.jpg")
	if !strings.HasPrefix(got, "https://project.example.co/storage/v1/") ||
		!strings.HasSuffix(got, "/object/public/drawings/thumbnails/a.jpg") {
		t.Errorf("PublicURL = %q", got)
	}
}

func TestErrorBody(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		isError  bool
		notFound bool
	}{
		{"jpeg bytes", "\xff\xd8\xff", false, false},
		{"json object", `{"a":1}`, false, false},
		{"missing", `{"statusCode":"404","error":"not_found","message":"Object not found"}`, true, true},
		{"denied", `{"statusCode":"403","error":"Unauthorized","message":"denied"}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := errorBody([]byte(tt.data))
			if ok != tt.isError {
				t.Fatalf("errorBody ok = %v, want %v", ok, tt.isError)
			}
			if ok && isNotFound(msg) != tt.notFound {
				t.Errorf("isNotFound(%q) = %v", msg, !tt.notFound)
			}
		})
	}
}

func TestListMissingPreviews(t *testing.T) {
	fb, url := newFakeBackend(t)
	_, docs := New(url, "service-key", "drawings")
	done := "thumbnails/b.jpg"
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	fb.rows = []drawingRow{
		{ID: "c", FileName: "c.pdf", FileType: "pdf", FileURL: "3-c.pdf", CreatedAt: day},
		{ID: "a", FileName: "a.pdf", FileType: "pdf", FileURL: "1-a.pdf", CreatedAt: day},
		{ID: "b", FileName: "b.png", FileType: "png", FileURL: "2-b.png", ThumbnailURL: &done, CreatedAt: day},
		{ID: "d", FileName: "d.png", FileType: "png", FileURL: "4-d.png", CreatedAt: day.Add(time.Hour)},
	}

	got, err := docs.ListMissingPreviews(context.Background())
	if err != nil {
		t.Fatalf("ListMissingPreviews: %v", err)
	}
	var ids []string
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	if strings.Join(ids, ",") != "d,a,c" {
		t.Fatalf("ids = %v, want [d a c]", ids)
	}
	if got[1].StorageKey != "1-a.pdf" {
		t.Errorf("storage key = %q", got[1].StorageKey)
	}
	if q := fb.queries[len(fb.queries)-1]; !strings.Contains(q, "created_at.desc") || !strings.Contains(q, "thumbnail_url=is.null") {
		t.Errorf("query %q does not select missing thumbnails newest first", q)
	}
}

func TestCreateAndSetPreviewKey(t *testing.T) {
	fb, url := newFakeBackend(t)
	_, docs := New(url, "service-key", "drawings")
	ctx := context.Background()

	doc := &store.SourceDocument{FileName: "plan.pdf", FileType: "pdf", Size: 10, StorageKey: "1-plan.pdf"}
	if err := docs.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.ID != "generated-id" || doc.CreatedAt.IsZero() {
		t.Fatalf("doc = %+v", doc)
	}

	if err := docs.SetPreviewKey(ctx, doc.ID, "thumbnails/generated-id.jpg"); err != nil {
		t.Fatalf("SetPreviewKey: %v", err)
	}
	if fb.patched["generated-id"] != "thumbnails/generated-id.jpg" {
		t.Errorf("patched = %v", fb.patched)
	}

	got, err := docs.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.HasPreview() {
		t.Error("expected preview key after update")
	}
	if byKey, err := docs.FindByStorageKey(ctx, "1-plan.pdf"); err != nil || byKey.ID != doc.ID {
		t.Errorf("FindByStorageKey = %+v, %v", byKey, err)
	}

	if err := docs.SetPreviewKey(ctx, "ghost", "k"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := docs.Get(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUnauthorized(t *testing.T) {
	_, url := newFakeBackend(t)
	_, docs := New(url, "wrong", "drawings")

	if _, err := docs.List(context.Background(), 10); err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("err = %v, want unauthorized", err)
	}
}
