package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tendant/drawing-thumbnailer/internal/cache"
	"github.com/tendant/drawing-thumbnailer/internal/config"
	"github.com/tendant/drawing-thumbnailer/internal/thumbnail"
)

func memoryConfig() config.Config {
	return config.Config{
		BackendKind:     config.BackendMemory,
		MaxWidth:        400,
		Quality:         80,
		RenderScale:     1.5,
		Rasterizer:      "fitz",
		Prefix:          "thumbnails/",
		KeyScheme:       "idempotent",
		RequestTimeout:  5 * time.Second,
		MaxUploadBytes:  1 << 20,
		DeriveInline:    true,
		PreviewCacheTTL: time.Hour,
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(x, y, color.RGBA{uint8(x), uint8(y), 10, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewMemoryBackend(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Bus != nil {
		t.Error("bus connected without NATS_URL")
	}
	doc, previewErr, err := a.Service.Upload(context.Background(), thumbnail.UploadRequest{FileName: "plan.png", Data: pngBytes(t, 800, 200)})
	if err != nil || previewErr != nil {
		t.Fatalf("Upload: %v / %v", err, previewErr)
	}
	if !doc.HasPreview() {
		t.Error("no preview after inline upload")
	}

	// Publish without a bus is a no-op.
	a.Publish("drawings.thumbnail.done", "test", map[string]string{"ok": "yes"})

	rec := httptest.NewRecorder()
	a.Router("test", false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("list status = %d", rec.Code)
	}
}

func TestNewWithPreviewCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Service.Deriver().(*cache.Deriver); !ok {
		t.Fatalf("deriver = %T, want cache-backed", a.Service.Deriver())
	}
	data := pngBytes(t, 600, 300)
	for i := 0; i < 2; i++ {
		p, err := a.Service.Deriver().Derive(context.Background(), data, "png")
		if err != nil {
			t.Fatalf("Derive #%d: %v", i, err)
		}
		if p.Width != 400 || p.Height != 200 {
			t.Errorf("Derive #%d = %dx%d", i, p.Width, p.Height)
		}
	}
	if len(mr.Keys()) != 1 {
		t.Errorf("cache keys = %v", mr.Keys())
	}
}

func TestNewRejectsUnknownRasterizer(t *testing.T) {
	cfg := memoryConfig()
	cfg.Rasterizer = "gimp"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error")
	}
}
