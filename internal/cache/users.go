package cache

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/jon4hz/pictura/internal/config"
	"github.com/jon4hz/pictura/internal/imagehost"
)

// UsersCachePrefix is the key prefix of user directory entries.
const UsersCachePrefix = "users-"

// UserFetcher loads a user from the API on a cache miss.
type UserFetcher func(ctx context.Context, id uint64) (*imagehost.User, error)

// UserDirectory caches user accounts by id so gallery headers and the admin views
// don't hit the API for every render.
type UserDirectory struct {
	users *PrefixedCache[imagehost.User]
}

// NewUserDirectory creates a directory backed by the configured store.
func NewUserDirectory(cfg *config.CacheConfig) *UserDirectory {
	if cfg == nil {
		cfg = &config.CacheConfig{Type: config.CacheTypeMemory}
	}
	return &UserDirectory{
		users: NewPrefixedCache[imagehost.User](newCacheInstanceByType(cfg), cfg.Type, UsersCachePrefix),
	}
}

// Lookup returns the cached user or loads it with fetch and caches the result.
// Fetch errors are returned unchanged so callers can react to unauthorized responses.
func (d *UserDirectory) Lookup(ctx context.Context, id uint64, fetch UserFetcher) (*imagehost.User, error) {
	if user, err := d.users.Get(ctx, id); err == nil {
		return &user, nil
	}

	user, err := fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Put(ctx, user)
	return user, nil
}

// Put caches user.
func (d *UserDirectory) Put(ctx context.Context, user *imagehost.User) {
	if user == nil || user.ID == 0 {
		return
	}
	if err := d.users.Set(ctx, user.ID, *user); err != nil {
		log.Warn("Failed to cache user", "id", user.ID, "error", err)
	}
}

// PutAll caches every user of a listing.
func (d *UserDirectory) PutAll(ctx context.Context, users []imagehost.User) {
	for i := range users {
		d.Put(ctx, &users[i])
	}
}

// Forget drops a user, e.g. after it was edited or deleted.
func (d *UserDirectory) Forget(ctx context.Context, id uint64) {
	if err := d.users.Delete(ctx, id); err != nil {
		log.Debug("Failed to drop cached user", "id", id, "error", err)
	}
}

// Stats returns the hit and miss counters of the directory.
func (d *UserDirectory) Stats() *codec.Stats {
	return d.users.GetStats()
}
