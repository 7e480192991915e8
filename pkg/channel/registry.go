package channel

import (
	"fmt"
	"sync"
)

// Store is the external durable channel store (§6): everything not an
// instanced channel is persisted here so it survives a restart. The core
// only ever needs Load/Save/Delete against it.
type Store interface {
	Load() ([]*Channel, error)
	Save(c *Channel) error
	Delete(name string) error
}

// Registry is the in-memory channel cache plus durable-store fallback
// described in §4.C. The zero value is not usable; use NewRegistry.
type Registry struct {
	store Store

	mu    sync.RWMutex
	cache map[string]*Channel
}

// NewRegistry constructs a Registry backed by store, eagerly loading the
// durable channel set into cache.
func NewRegistry(store Store) (*Registry, error) {
	r := &Registry{store: store, cache: make(map[string]*Channel)}
	if store != nil {
		channels, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("channel: load durable channels: %w", err)
		}
		for _, c := range channels {
			r.cache[c.Name] = c
		}
	}
	return r, nil
}

// Fetch returns a channel from cache, falling back to the durable store
// on a cache miss (§4.C). A durable-store hit is cached for subsequent
// lookups.
func (r *Registry) Fetch(name string) (*Channel, bool) {
	r.mu.RLock()
	c, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return c, true
	}
	if r.store == nil {
		return nil, false
	}
	channels, err := r.store.Load()
	if err != nil {
		return nil, false
	}
	for _, c := range channels {
		if c.Name == name {
			r.mu.Lock()
			r.cache[name] = c
			r.mu.Unlock()
			return c, true
		}
	}
	return nil, false
}

// Create creates an in-memory channel entry; when instance is false it is
// also persisted to the durable store (§3 invariant, §4.C).
func (r *Registry) Create(name, topic string, readPriv, writePriv Privilege, autoJoin, instance bool) (*Channel, error) {
	c := New(name, topic, readPriv, writePriv, autoJoin, instance)

	r.mu.Lock()
	r.cache[name] = c
	r.mu.Unlock()

	if !instance && r.store != nil {
		if err := r.store.Save(c); err != nil {
			r.mu.Lock()
			delete(r.cache, name)
			r.mu.Unlock()
			return nil, fmt.Errorf("channel: persist %q: %w", name, err)
		}
	}
	return c, nil
}

// Delete removes name from the cache (and the durable store, if the
// channel was durable).
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	c, ok := r.cache[name]
	if ok {
		delete(r.cache, name)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if !c.Instance && r.store != nil {
		return r.store.Delete(name)
	}
	return nil
}

// All returns a snapshot of every cached channel.
func (r *Registry) All() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Channel, 0, len(r.cache))
	for _, c := range r.cache {
		out = append(out, c)
	}
	return out
}

// ResolveContext carries the caller-specific facts needed to rewrite a
// contextual channel name (§4.C): #spectator resolves per-session to the
// spectator group channel, #multiplayer resolves to the caller's match
// chat.
type ResolveContext struct {
	// SpectatingHostID is the id of the player being spectated, or 0 if
	// the caller isn't spectating anyone.
	SpectatingHostID int32
	// SelfID is the caller's own id, used when the caller hosts a
	// spectator group rather than joining one.
	SelfID int32
	// HasSpectators is true when SelfID has at least one spectator of
	// their own.
	HasSpectators bool
	// MatchChannelName is the caller's current match chat channel name,
	// or "" if the caller isn't in a match.
	MatchChannelName string
}

// Resolve fetches name, first rewriting #spectator/#multiplayer per ctx.
// Both contextual names resolve to (nil, false) when the context doesn't
// apply (§4.C).
func (r *Registry) Resolve(name string, ctx ResolveContext) (*Channel, bool) {
	switch name {
	case "#spectator":
		switch {
		case ctx.SpectatingHostID != 0:
			name = fmt.Sprintf("#spec_%d", ctx.SpectatingHostID)
		case ctx.HasSpectators:
			name = fmt.Sprintf("#spec_%d", ctx.SelfID)
		default:
			return nil, false
		}
	case "#multiplayer":
		if ctx.MatchChannelName == "" {
			return nil, false
		}
		name = ctx.MatchChannelName
	}
	return r.Fetch(name)
}
