// Package gallery implements the paginated, deduplicated photo lists shared by all gallery views.
package gallery

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"
)

// ErrStale is returned when a page arrives after the list moved on,
// either to another scope or past the requested page. The result is discarded.
var ErrStale = errors.New("stale page discarded")

// FetchFunc fetches one page of a scope. Pages start at 1.
type FetchFunc[S comparable, T any] func(ctx context.Context, scope S, page int) ([]T, error)

// Remover is a list that entries can be removed from by identifier.
type Remover[K comparable] interface {
	Remove(key K) bool
}

// Pager accumulates the pages of a scope (a user, the explore feed, ...) into a single list.
// Items keep the order in which they were first seen and every identifier appears at most once.
type Pager[S comparable, T any, K comparable] struct {
	fetch FetchFunc[S, T]
	key   func(T) K

	mu      sync.Mutex
	scope   S
	scoped  bool
	gen     uint64
	page    int
	items   []T
	seen    map[K]struct{}
	hasMore bool
	err     error
}

// NewPager creates a pager without a scope. Call SetScope to load the first page.
func NewPager[S comparable, T any, K comparable](
	fetch func(ctx context.Context, scope S, page int) ([]T, error),
	key func(T) K,
) *Pager[S, T, K] {
	return &Pager[S, T, K]{
		fetch: fetch,
		key:   key,
		seen:  make(map[K]struct{}),
	}
}

// SetScope switches the pager to scope and loads its first page.
// Selecting the current scope again does nothing.
func (p *Pager[S, T, K]) SetScope(ctx context.Context, scope S) error {
	p.mu.Lock()
	if p.scoped && p.scope == scope {
		p.mu.Unlock()
		return nil
	}
	p.resetLocked(scope)
	p.mu.Unlock()

	return p.load(ctx)
}

// Reload drops everything loaded for the current scope and loads page 1 again.
func (p *Pager[S, T, K]) Reload(ctx context.Context) error {
	p.mu.Lock()
	if !p.scoped {
		p.mu.Unlock()
		return nil
	}
	p.resetLocked(p.scope)
	p.mu.Unlock()

	return p.load(ctx)
}

// Reset forgets the scope and everything loaded for it.
func (p *Pager[S, T, K]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero S
	p.resetLocked(zero)
	p.scoped = false
	p.hasMore = false
}

func (p *Pager[S, T, K]) resetLocked(scope S) {
	p.scope = scope
	p.scoped = true
	p.gen++
	p.page = 0
	p.items = nil
	p.seen = make(map[K]struct{})
	p.hasMore = true
	p.err = nil
}

// LoadMore requests the page after the last one that loaded successfully.
// It does nothing once the scope is exhausted.
func (p *Pager[S, T, K]) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if !p.scoped || !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.load(ctx)
}

func (p *Pager[S, T, K]) load(ctx context.Context) error {
	p.mu.Lock()
	gen, scope, page := p.gen, p.scope, p.page+1
	p.mu.Unlock()

	batch, err := p.fetch(ctx, scope, page)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.page+1 != page {
		return ErrStale
	}
	if err != nil {
		p.err = err
		return err
	}

	p.err = nil
	if len(batch) == 0 {
		p.hasMore = false
		return nil
	}

	p.page = page
	for _, item := range batch {
		k := p.key(item)
		if _, ok := p.seen[k]; ok {
			continue
		}
		p.seen[k] = struct{}{}
		p.items = append(p.items, item)
	}
	return nil
}

// Remove drops the entry with the given identifier and reports whether it was present.
func (p *Pager[S, T, K]) Remove(key K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.seen[key]; !ok {
		return false
	}
	delete(p.seen, key)
	p.items = lo.Reject(p.items, func(item T, _ int) bool { return p.key(item) == key })
	return true
}

// Update replaces every item with fn(item). The identifier of an item must not change.
func (p *Pager[S, T, K]) Update(fn func(T) T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.items {
		p.items[i] = fn(p.items[i])
	}
}

// Items returns a copy of the accumulated entries.
func (p *Pager[S, T, K]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]T, len(p.items))
	copy(items, p.items)
	return items
}

// Scope returns the current scope and whether one is set.
func (p *Pager[S, T, K]) Scope() (S, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scope, p.scoped
}

// HasMore reports whether LoadMore can fetch another page.
func (p *Pager[S, T, K]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scoped && p.hasMore
}

// Page returns the last page that loaded successfully, 0 if none did.
func (p *Pager[S, T, K]) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Err returns the error of the last fetch, nil if it succeeded.
func (p *Pager[S, T, K]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// RemoveEverywhere removes key from every list and returns how many lists held it.
func RemoveEverywhere[K comparable](key K, lists ...Remover[K]) int {
	removed := 0
	for _, l := range lists {
		if l != nil && l.Remove(key) {
			removed++
		}
	}
	return removed
}
