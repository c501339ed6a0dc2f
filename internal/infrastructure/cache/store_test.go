package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

func newTestStore() (*Store, *MemoryKV) {
	kv := NewMemoryKV()
	return NewStore(kv, "test", zerolog.Nop()), kv
}

// ---------------------------------------------------------------------------
// Empty defaults
// ---------------------------------------------------------------------------

func TestStore_MissingSlotsReturnEmptyDefaults(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	active, err := s.SessionActive(ctx)
	if err != nil || active {
		t.Fatalf("expected inactive session, got %v (err %v)", active, err)
	}
	u, err := s.CurrentUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("expected nil user, got %+v (err %v)", u, err)
	}
	dir, err := s.Directory(ctx)
	if err != nil || dir == nil || len(dir) != 0 {
		t.Fatalf("expected empty directory, got %v (err %v)", dir, err)
	}
	listings, err := s.Listings(ctx)
	if err != nil || listings == nil || len(listings) != 0 {
		t.Fatalf("expected empty listings, got %v (err %v)", listings, err)
	}
	posts, err := s.Posts(ctx)
	if err != nil || posts == nil || len(posts) != 0 {
		t.Fatalf("expected empty posts, got %v (err %v)", posts, err)
	}
	convs, err := s.Conversations(ctx)
	if err != nil || convs == nil || len(convs) != 0 {
		t.Fatalf("expected empty conversations, got %v (err %v)", convs, err)
	}
}

// ---------------------------------------------------------------------------
// Round trips
// ---------------------------------------------------------------------------

func TestStore_ListingsRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	in := []domain.Listing{{
		ID: "local-1", Kind: domain.KindGig, OwnerID: "c1", Title: "Logo Design",
		Price: 3000, Status: domain.StatusOpen, Origin: domain.OriginLocal,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	if err := s.SetListings(ctx, in); err != nil {
		t.Fatalf("set listings: %v", err)
	}

	out, err := s.Listings(ctx)
	if err != nil {
		t.Fatalf("get listings: %v", err)
	}
	if len(out) != 1 || out[0].Title != "Logo Design" || out[0].Price != 3000 || out[0].Origin != domain.OriginLocal {
		t.Fatalf("unexpected listings: %+v", out)
	}
}

func TestStore_SessionFlagClearedOnFalse(t *testing.T) {
	s, kv := newTestStore()
	ctx := context.Background()

	if err := s.SetSessionActive(ctx, true); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "test:session"); !ok {
		t.Fatalf("expected namespaced session key")
	}
	if err := s.SetSessionActive(ctx, false); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "test:session"); ok {
		t.Fatalf("expected session key removed")
	}
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	kv := NewMemoryKV()
	a := NewStore(kv, "a", zerolog.Nop())
	b := NewStore(kv, "b", zerolog.Nop())
	ctx := context.Background()

	if err := a.SetSessionActive(ctx, true); err != nil {
		t.Fatalf("set session: %v", err)
	}
	active, err := b.SessionActive(ctx)
	if err != nil || active {
		t.Fatalf("namespace b should not see namespace a's session")
	}
}

// ---------------------------------------------------------------------------
// Boundary validation
// ---------------------------------------------------------------------------

func TestStore_RejectsInvalidRecordOnWrite(t *testing.T) {
	s, kv := newTestStore()
	ctx := context.Background()

	err := s.SetListings(ctx, []domain.Listing{{ID: "x", Kind: "job", Title: "t", Status: domain.StatusOpen, Origin: domain.OriginAPI}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "test:listings"); ok {
		t.Fatalf("invalid listings must not be persisted")
	}
}

func TestStore_MalformedJSONIsCorrupt(t *testing.T) {
	s, kv := newTestStore()
	ctx := context.Background()
	_ = kv.Set(ctx, "test:posts", []byte(`{not json`))

	posts, err := s.Posts(ctx)
	if !IsCorrupt(err) {
		t.Fatalf("expected corrupt cache error, got %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("expected empty posts alongside the error, got %v", posts)
	}
}

func TestStore_InvalidRecordOnReadIsCorrupt(t *testing.T) {
	s, kv := newTestStore()
	ctx := context.Background()
	_ = kv.Set(ctx, "test:user", []byte(`{"id":"","role":"admin","origin":"api"}`))

	_, err := s.CurrentUser(ctx)
	if !errors.Is(err, domain.ErrCorruptCache) {
		t.Fatalf("expected ErrCorruptCache, got %v", err)
	}
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_ = s.SetSessionActive(ctx, true)
	_ = s.SetCurrentUser(ctx, &domain.User{ID: "u1", Username: "amina", Role: domain.RolePWD, Origin: domain.OriginAPI})
	_ = s.SetDirectory(ctx, map[string]domain.DirectoryEntry{"u2": {Name: "bob", Role: domain.RoleClient}})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if active, _ := s.SessionActive(ctx); active {
		t.Fatalf("session should be cleared")
	}
	if u, _ := s.CurrentUser(ctx); u != nil {
		t.Fatalf("user should be cleared")
	}
	if dir, _ := s.Directory(ctx); len(dir) != 0 {
		t.Fatalf("directory should be cleared")
	}
}
