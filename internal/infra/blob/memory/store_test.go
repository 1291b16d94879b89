package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"atlas/internal/blob/core"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()
	stamp := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	store.now = func() time.Time { return stamp }

	meta := map[string]string{"source": "scan"}
	info, err := store.Put(ctx, "labels/a.jpg", bytes.NewReader([]byte("jpeg")), core.PutOptions{ContentType: "image/jpeg", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["source"] = "mutated"
	if info.Size != 4 || !info.LastModified.Equal(stamp) || info.LastModified.Location() != time.UTC {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "labels/a.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "jpeg" || got.ContentType != "image/jpeg" || got.Metadata["source"] != "scan" {
		t.Fatalf("unexpected object %+v %q", got, data)
	}

	if _, err := store.Put(ctx, "labels/a.jpg", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "../a.jpg", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, key := range []string{"labels/b.png", "labels/a.jpg", "exports/x.json"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "labels/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "labels/a.jpg" || list[1].Key != "labels/b.png" {
		t.Fatalf("unexpected list %+v", list)
	}
	if all, _ := store.List(ctx, ""); len(all) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(all))
	}

	if ok, err := store.Delete(ctx, "labels/a.jpg"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := store.Delete(ctx, "labels/a.jpg"); ok {
		t.Fatalf("second delete must report false")
	}
	if _, err := store.Head(ctx, "labels/a.jpg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "labels/a.jpg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestStoreUnsupportedAndReadFailure(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := store.Put(context.Background(), "k", brokenReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read failure")
	}
}
