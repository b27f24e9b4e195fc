package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost/drawings/")

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	data := []byte("preview")
	if err := s.Put(ctx, "thumbnails/a.jpg", data, "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data[0] = 'X'

	got, err := s.Get(ctx, "thumbnails/a.jpg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "preview" {
		t.Errorf("Get = %q, stored bytes were aliased", got)
	}
	if ct := s.ContentType("thumbnails/a.jpg"); ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}
	if u := s.PublicURL("thumbnails/a.jpg"); u != "http://localhost/drawings/thumbnails/a.jpg" {
		t.Errorf("PublicURL = %q", u)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")

	_ = s.Put(ctx, "k", []byte("one"), "image/jpeg")
	_ = s.Put(ctx, "k", []byte("two"), "image/jpeg")

	got, _ := s.Get(ctx, "k")
	if string(got) != "two" {
		t.Errorf("Get = %q, want two", got)
	}
	if keys := s.Keys(); len(keys) != 1 {
		t.Errorf("keys = %v", keys)
	}
	if s.PublicURL("k") != "" {
		t.Error("expected no public URL without a base")
	}
}

func TestMemoryStoreCancelledPut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore("")
	if err := s.Put(ctx, "k", []byte("x"), "image/jpeg"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
