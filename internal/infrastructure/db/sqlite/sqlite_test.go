package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestKV(t *testing.T) *KV {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return NewKV(db)
}

func TestKV_SetGetOverwrite(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "ns:posts"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "ns:posts", []byte(`[1]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "ns:posts", []byte(`[1,2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := kv.Get(ctx, "ns:posts")
	if err != nil || !ok || string(v) != `[1,2]` {
		t.Fatalf("unexpected value %q ok=%v err=%v", v, ok, err)
	}
}

func TestKV_Delete(t *testing.T) {
	kv := openTestKV(t)
	ctx := context.Background()

	_ = kv.Set(ctx, "a", []byte("1"))
	_ = kv.Set(ctx, "b", []byte("2"))
	_ = kv.Set(ctx, "c", []byte("3"))

	if err := kv.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "a"); ok {
		t.Fatalf("a should be gone")
	}
	if _, ok, _ := kv.Get(ctx, "c"); !ok {
		t.Fatalf("c should remain")
	}
	if err := kv.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
