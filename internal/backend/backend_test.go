package backend

import (
	"context"
	"log/slog"
	"testing"

	"github.com/tendant/drawing-thumbnailer/internal/config"
	"github.com/tendant/drawing-thumbnailer/internal/supabase"
)

func TestOpenMemory(t *testing.T) {
	b, err := Open(context.Background(), config.Config{BackendKind: config.BackendMemory}, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if b.Objects == nil || b.Docs == nil {
		t.Fatal("memory backend incomplete")
	}
	if b.Pool() != nil {
		t.Error("memory backend has no pool")
	}
}

func TestOpenSupabase(t *testing.T) {
	cfg := config.Config{
		BackendKind:       config.BackendSupabase,
		BackendURL:        "https://project.example.co",
		BackendServiceKey: "k",
		StorageBucket:     "drawings",
	}
	b, err := Open(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := b.Objects.(*supabase.Storage); !ok {
		t.Errorf("objects = %T", b.Objects)
	}
	if _, ok := b.Docs.(*supabase.Drawings); !ok {
		t.Errorf("docs = %T", b.Docs)
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open(context.Background(), config.Config{BackendKind: "ftp"}, slog.Default()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
