package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jon4hz/pictura/internal/config"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory() *UserDirectory {
	return NewUserDirectory(&config.CacheConfig{Type: config.CacheTypeMemory, TTL: time.Minute})
}

func TestUserDirectory_LookupCachesResult(t *testing.T) {
	dir := newTestDirectory()
	ctx := context.Background()

	calls := 0
	fetch := func(_ context.Context, id uint64) (*imagehost.User, error) {
		calls++
		return &imagehost.User{ID: id, Name: "Ann"}, nil
	}

	user, err := dir.Lookup(ctx, 4, fetch)
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)

	user, err = dir.Lookup(ctx, 4, fetch)
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, 1, calls)
}

func TestUserDirectory_LookupErrorNotCached(t *testing.T) {
	dir := newTestDirectory()
	ctx := context.Background()

	unauthorized := &imagehost.APIError{StatusCode: http.StatusUnauthorized}
	_, err := dir.Lookup(ctx, 1, func(context.Context, uint64) (*imagehost.User, error) {
		return nil, unauthorized
	})
	assert.True(t, imagehost.IsUnauthorized(err))

	user, err := dir.Lookup(ctx, 1, func(_ context.Context, id uint64) (*imagehost.User, error) {
		return &imagehost.User{ID: id, Name: "Bob"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.Name)
}

func TestUserDirectory_PutAllAndForget(t *testing.T) {
	dir := newTestDirectory()
	ctx := context.Background()

	dir.PutAll(ctx, []imagehost.User{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {Name: "no id"}})

	failing := func(context.Context, uint64) (*imagehost.User, error) {
		return nil, errors.New("should not be called")
	}
	user, err := dir.Lookup(ctx, 2, failing)
	require.NoError(t, err)
	assert.Equal(t, "B", user.Name)

	dir.Forget(ctx, 2)
	_, err = dir.Lookup(ctx, 2, failing)
	assert.Error(t, err)
}

func TestPrefixedCache_DecodesStringValues(t *testing.T) {
	c := newMemoryCache(time.Minute)
	pc := NewPrefixedCache[imagehost.User](c, config.CacheTypeRedis, "p-")
	ctx := context.Background()

	// redis hands back strings
	require.NoError(t, c.Set(ctx, "p-1", `{"id":1,"name":"Str"}`))
	user, err := pc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Str", user.Name)

	require.NoError(t, c.Set(ctx, "p-2", 42))
	_, err = pc.Get(ctx, 2)
	assert.Error(t, err)
}

func TestUserDirectory_Stats(t *testing.T) {
	dir := newTestDirectory()
	ctx := context.Background()

	dir.Put(ctx, &imagehost.User{ID: 1})
	_, _ = dir.Lookup(ctx, 1, nil)

	stats := dir.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Hits)
}
