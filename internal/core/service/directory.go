package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

// Directory resolves user ids to display names. It is filled only by
// observing users referenced in backend payloads and by the session user.
type Directory struct {
	store ports.LocalStore
	log   zerolog.Logger

	mu     sync.Mutex
	recent map[string]domain.DirectoryEntry
}

var _ ports.NameResolver = (*Directory)(nil)

func NewDirectory(store ports.LocalStore, log zerolog.Logger) *Directory {
	return &Directory{
		store:  store,
		log:    log.With().Str("component", "directory").Logger(),
		recent: make(map[string]domain.DirectoryEntry),
	}
}

// Observe upserts refs into the in-memory view and the persisted directory.
// Refs without an id or a name are ignored. A ref without a role keeps the
// role already known for that id, or pwd for a new id.
func (d *Directory) Observe(ctx context.Context, refs ...domain.UserRef) {
	d.mu.Lock()
	defer d.mu.Unlock()

	incoming := make(map[string]domain.UserRef, len(refs))
	for _, r := range refs {
		if r.ID == "" || r.Name == "" {
			continue
		}
		if prev, ok := incoming[r.ID]; ok && r.Role == "" {
			r.Role = prev.Role
		}
		incoming[r.ID] = r
	}
	if len(incoming) == 0 {
		return
	}

	persisted, err := d.store.Directory(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptCache):
		// Derived data: rebuild over a corrupt slot.
		d.log.Warn().Err(err).Msg("rebuilding corrupt directory")
		persisted = map[string]domain.DirectoryEntry{}
	case err != nil:
		d.log.Warn().Err(err).Msg("directory read failed, keeping in-memory entries only")
		persisted = nil
	}

	changed := false
	for id, r := range incoming {
		e := domain.DirectoryEntry{Name: r.Name, Role: d.knownRole(id, r.Role, persisted)}
		d.recent[id] = e
		if persisted != nil && persisted[id] != e {
			persisted[id] = e
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := d.store.SetDirectory(ctx, persisted); err != nil {
		d.log.Warn().Err(err).Msg("directory write failed")
	}
}

// knownRole picks role, else the role already recorded for id, else pwd.
func (d *Directory) knownRole(id string, role domain.Role, persisted map[string]domain.DirectoryEntry) domain.Role {
	if role != "" {
		return role
	}
	if e, ok := d.recent[id]; ok && e.Role != "" {
		return e.Role
	}
	if e, ok := persisted[id]; ok && e.Role != "" {
		return e.Role
	}
	return domain.RolePWD
}

// ResolveName looks id up in this order: users observed by this process,
// the persisted directory, the session's own profile. It never fails.
func (d *Directory) ResolveName(ctx context.Context, id string) string {
	if id == "" {
		return domain.UnknownUser
	}

	d.mu.Lock()
	e, ok := d.recent[id]
	d.mu.Unlock()
	if ok {
		return e.Name
	}

	if dir, err := d.store.Directory(ctx); err != nil {
		d.log.Debug().Err(err).Msg("directory unavailable")
	} else if e, ok := dir[id]; ok {
		return e.Name
	}

	for _, load := range []func(context.Context) (*domain.User, error){d.store.CurrentUser, d.store.ClientProfile} {
		u, err := load(ctx)
		if err == nil && u != nil && u.ID == id && u.DisplayName() != "" {
			return u.DisplayName()
		}
	}

	return domain.UnknownUser
}
