package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jon4hz/pictura/internal/gallery"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/jon4hz/pictura/internal/session"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

type (
	photoPager   = gallery.Pager[uint64, imagehost.Photo, uint64]
	explorePager = gallery.Pager[uint64, imagehost.UserPhotos, uint64]
)

func photoID(p imagehost.Photo) uint64             { return p.ID }
func exploreUserID(up imagehost.UserPhotos) uint64 { return up.User.ID }

// Instance is the application state of one browser: who is logged in and the gallery
// lists loaded so far. It lives across requests for as long as the browser keeps using it.
type Instance struct {
	ID      string
	Session *session.Store
	API     *imagehost.Client

	// Explore has a single scope (0), keyed by user id.
	Explore *explorePager
	// UserGallery is scoped by the viewed user.
	UserGallery *photoPager
	// OwnGallery is scoped by the logged in user.
	OwnGallery *photoPager
	// AdminPhotos is scoped by the selected user, 0 selects all photos.
	AdminPhotos *photoPager

	tokens *session.MemoryTokenStore
}

func newInstance(id string, base *imagehost.Client, token string) *Instance {
	tokens := session.NewMemoryTokenStore(token)
	api := base.WithTokens(tokens)

	inst := &Instance{
		ID:      id,
		Session: session.New(api, tokens),
		API:     api,
		tokens:  tokens,
	}

	inst.Explore = gallery.NewPager(func(ctx context.Context, _ uint64, page int) ([]imagehost.UserPhotos, error) {
		return api.Explore(ctx, page)
	}, exploreUserID)

	inst.UserGallery = gallery.NewPager(func(ctx context.Context, userID uint64, page int) ([]imagehost.Photo, error) {
		return api.UserPhotos(ctx, userID, page)
	}, photoID)

	inst.OwnGallery = gallery.NewPager(func(ctx context.Context, _ uint64, page int) ([]imagehost.Photo, error) {
		return api.MyPhotos(ctx, page)
	}, photoID)

	inst.AdminPhotos = gallery.NewPager(func(ctx context.Context, userID uint64, page int) ([]imagehost.Photo, error) {
		if userID != 0 {
			return api.UserPhotos(ctx, userID, page)
		}
		feed, err := api.Explore(ctx, page)
		if err != nil {
			return nil, err
		}
		return lo.FlatMap(feed, func(up imagehost.UserPhotos, _ int) []imagehost.Photo {
			return lo.Map(up.Photos, func(p imagehost.Photo, _ int) imagehost.Photo {
				if p.UserName == "" {
					p.UserName = up.User.DisplayName()
				}
				if p.UserID == 0 {
					p.UserID = up.User.ID
				}
				return p
			})
		}), nil
	}, photoID)

	return inst
}

// Token returns the bearer token of the instance, empty when logged out.
func (i *Instance) Token() string {
	token, _ := i.tokens.Token()
	return token
}

// Reset drops every loaded list, e.g. when the logged in user changes.
func (i *Instance) Reset() {
	i.Explore.Reset()
	i.UserGallery.Reset()
	i.OwnGallery.Reset()
	i.AdminPhotos.Reset()
}

// RemovePhoto removes a deleted photo from every list the instance holds.
func (i *Instance) RemovePhoto(id uint64) int {
	return gallery.RemoveEverywhere[uint64](id,
		i.OwnGallery,
		i.UserGallery,
		i.AdminPhotos,
		explorePhotos{i.Explore},
	)
}

// explorePhotos removes photos from the previews of the explore feed.
type explorePhotos struct {
	pager *explorePager
}

func (e explorePhotos) Remove(photoID uint64) bool {
	found := false
	e.pager.Update(func(up imagehost.UserPhotos) imagehost.UserPhotos {
		kept := lo.Reject(up.Photos, func(p imagehost.Photo, _ int) bool { return p.ID == photoID })
		if len(kept) != len(up.Photos) {
			found = true
			up.Photos = kept
		}
		return up
	})
	return found
}

// Instances keeps the instances of all browsers in memory. Idle instances expire after ttl
// and are dropped by Sweep.
type Instances struct {
	base  *imagehost.Client
	cache *gocache.Cache
	mu    sync.Mutex
}

// NewInstances creates an empty registry. Instances use base bound to their own token.
func NewInstances(base *imagehost.Client, ttl time.Duration) *Instances {
	// expired instances are removed by the scheduler, not by a janitor goroutine
	return &Instances{
		base:  base,
		cache: gocache.New(ttl, gocache.NoExpiration),
	}
}

// Acquire returns the instance with the given id and extends its lifetime.
// If there is none, a new instance is created that starts out with token,
// the last token the browser was known to hold.
func (r *Instances) Acquire(id, token string) *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if v, ok := r.cache.Get(id); ok {
			inst := v.(*Instance)
			r.cache.SetDefault(id, inst)
			return inst
		}
	}

	inst := newInstance(uuid.NewString(), r.base, token)
	r.cache.SetDefault(inst.ID, inst)
	return inst
}

// Get returns an instance without extending its lifetime.
func (r *Instances) Get(id string) (*Instance, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Instance), true
}

// Count returns the number of live instances, including expired ones not swept yet.
func (r *Instances) Count() int {
	return r.cache.ItemCount()
}

// Sweep removes expired instances and returns how many were removed.
func (r *Instances) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.cache.ItemCount()
	r.cache.DeleteExpired()
	return before - r.cache.ItemCount()
}
