// Package cache implements the Local Cache Store: named, typed slots that are
// JSON encoded into a KV backend and validated on every read and write.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/pkg/metrics"
	"github.com/ableconnect/connect-agent/internal/pkg/validation"
)

// Slot names a cache entry. The stored key is "<namespace>:<slot>".
type Slot string

const (
	SlotSession       Slot = "session"
	SlotUser          Slot = "user"
	SlotClientProfile Slot = "client_profile"
	SlotDirectory     Slot = "directory"
	SlotListings      Slot = "listings"
	SlotPosts         Slot = "posts"
	SlotConversations Slot = "conversations"
)

var allSlots = []Slot{
	SlotSession, SlotUser, SlotClientProfile, SlotDirectory,
	SlotListings, SlotPosts, SlotConversations,
}

const DefaultNamespace = "ableconnect"

// Store implements ports.LocalStore on top of a KV backend.
type Store struct {
	kv        KV
	namespace string
	log       zerolog.Logger
}

var _ ports.LocalStore = (*Store)(nil)

func NewStore(kv KV, namespace string, log zerolog.Logger) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{kv: kv, namespace: namespace, log: log}
}

func (s *Store) key(slot Slot) string { return s.namespace + ":" + string(slot) }

// load decodes slot into dst. found is false when the slot is absent.
func (s *Store) load(ctx context.Context, slot Slot, dst any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.key(slot))
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues(string(slot), "read").Inc()
		return false, fmt.Errorf("cache read %s: %w", slot, err)
	}
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheErrorsTotal.WithLabelValues(string(slot), "decode").Inc()
		s.log.Error().Err(err).Str("slot", string(slot)).Msg("cache slot is not valid JSON")
		return false, fmt.Errorf("cache read %s: %w: %v", slot, domain.ErrCorruptCache, err)
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, slot Slot, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", slot, err)
	}
	if err := s.kv.Set(ctx, s.key(slot), raw); err != nil {
		metrics.CacheErrorsTotal.WithLabelValues(string(slot), "write").Inc()
		return fmt.Errorf("cache write %s: %w", slot, err)
	}
	return nil
}

// corrupt converts a validation failure on read into ErrCorruptCache.
func (s *Store) corrupt(slot Slot, err error) error {
	metrics.CacheErrorsTotal.WithLabelValues(string(slot), "invalid").Inc()
	s.log.Error().Err(err).Str("slot", string(slot)).Msg("cache slot failed validation")
	return fmt.Errorf("cache read %s: %w: %v", slot, domain.ErrCorruptCache, err)
}

func validateAll[T any](items []T) error {
	for i := range items {
		if err := validation.Check(items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) SessionActive(ctx context.Context) (bool, error) {
	var active bool
	if _, err := s.load(ctx, SlotSession, &active); err != nil {
		return false, err
	}
	return active, nil
}

func (s *Store) SetSessionActive(ctx context.Context, active bool) error {
	if !active {
		return s.remove(ctx, SlotSession)
	}
	return s.save(ctx, SlotSession, true)
}

func (s *Store) CurrentUser(ctx context.Context) (*domain.User, error) {
	return s.loadUser(ctx, SlotUser)
}

func (s *Store) SetCurrentUser(ctx context.Context, u *domain.User) error {
	return s.saveUser(ctx, SlotUser, u)
}

func (s *Store) ClientProfile(ctx context.Context) (*domain.User, error) {
	return s.loadUser(ctx, SlotClientProfile)
}

func (s *Store) SetClientProfile(ctx context.Context, u *domain.User) error {
	return s.saveUser(ctx, SlotClientProfile, u)
}

func (s *Store) loadUser(ctx context.Context, slot Slot) (*domain.User, error) {
	var u domain.User
	found, err := s.load(ctx, slot, &u)
	if err != nil || !found {
		return nil, err
	}
	if err := validation.Check(u); err != nil {
		return nil, s.corrupt(slot, err)
	}
	return &u, nil
}

func (s *Store) saveUser(ctx context.Context, slot Slot, u *domain.User) error {
	if u == nil {
		return s.remove(ctx, slot)
	}
	if err := validation.Check(u); err != nil {
		return fmt.Errorf("cache write %s: %w", slot, err)
	}
	return s.save(ctx, slot, u)
}

func (s *Store) Directory(ctx context.Context) (map[string]domain.DirectoryEntry, error) {
	dir := map[string]domain.DirectoryEntry{}
	if _, err := s.load(ctx, SlotDirectory, &dir); err != nil {
		return map[string]domain.DirectoryEntry{}, err
	}
	for id, e := range dir {
		if err := validation.Check(e); err != nil {
			return map[string]domain.DirectoryEntry{}, s.corrupt(SlotDirectory, fmt.Errorf("entry %s: %w", id, err))
		}
	}
	return dir, nil
}

func (s *Store) SetDirectory(ctx context.Context, dir map[string]domain.DirectoryEntry) error {
	for id, e := range dir {
		if err := validation.Check(e); err != nil {
			return fmt.Errorf("cache write %s: entry %s: %w", SlotDirectory, id, err)
		}
	}
	return s.save(ctx, SlotDirectory, dir)
}

func (s *Store) Listings(ctx context.Context) ([]domain.Listing, error) {
	items := []domain.Listing{}
	if _, err := s.load(ctx, SlotListings, &items); err != nil {
		return []domain.Listing{}, err
	}
	if err := validateAll(items); err != nil {
		return []domain.Listing{}, s.corrupt(SlotListings, err)
	}
	return items, nil
}

func (s *Store) SetListings(ctx context.Context, items []domain.Listing) error {
	if err := validateAll(items); err != nil {
		return fmt.Errorf("cache write %s: %w", SlotListings, err)
	}
	if items == nil {
		items = []domain.Listing{}
	}
	return s.save(ctx, SlotListings, items)
}

func (s *Store) Posts(ctx context.Context) ([]domain.Post, error) {
	posts := []domain.Post{}
	if _, err := s.load(ctx, SlotPosts, &posts); err != nil {
		return []domain.Post{}, err
	}
	if err := validateAll(posts); err != nil {
		return []domain.Post{}, s.corrupt(SlotPosts, err)
	}
	return posts, nil
}

func (s *Store) SetPosts(ctx context.Context, posts []domain.Post) error {
	if err := validateAll(posts); err != nil {
		return fmt.Errorf("cache write %s: %w", SlotPosts, err)
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return s.save(ctx, SlotPosts, posts)
}

func (s *Store) Conversations(ctx context.Context) (map[string]domain.Conversation, error) {
	convs := map[string]domain.Conversation{}
	if _, err := s.load(ctx, SlotConversations, &convs); err != nil {
		return map[string]domain.Conversation{}, err
	}
	for peer, c := range convs {
		if err := validation.Check(c); err != nil {
			return map[string]domain.Conversation{}, s.corrupt(SlotConversations, fmt.Errorf("peer %s: %w", peer, err))
		}
	}
	return convs, nil
}

func (s *Store) SetConversations(ctx context.Context, convs map[string]domain.Conversation) error {
	for peer, c := range convs {
		if err := validation.Check(c); err != nil {
			return fmt.Errorf("cache write %s: peer %s: %w", SlotConversations, peer, err)
		}
	}
	return s.save(ctx, SlotConversations, convs)
}

func (s *Store) remove(ctx context.Context, slot Slot) error {
	if err := s.kv.Delete(ctx, s.key(slot)); err != nil {
		return fmt.Errorf("cache delete %s: %w", slot, err)
	}
	return nil
}

// Clear drops every slot in the namespace.
func (s *Store) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(allSlots))
	for _, slot := range allSlots {
		keys = append(keys, s.key(slot))
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

// IsCorrupt reports whether err came from a slot that failed decoding or validation.
func IsCorrupt(err error) bool { return errors.Is(err, domain.ErrCorruptCache) }
