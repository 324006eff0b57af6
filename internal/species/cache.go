package species

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/user/creature-league/internal/interfaces"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache stores gateway results by key for a bounded time
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// LRUCache is a size-bounded cache whose entries expire after a TTL
type LRUCache struct {
	lru *expirable.LRU[string, any]
}

// NewLRUCache creates a cache holding at most size entries for ttl
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Get returns the cached value for key
func (c *LRUCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores value under key
func (c *LRUCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// CachedGateway decorates a gateway with a shared result cache and
// de-duplicates concurrent fetches of the same key. Errors are never cached.
type CachedGateway struct {
	next   interfaces.SpeciesGateway
	cache  Cache
	group  singleflight.Group
	logger *zap.Logger
}

var _ interfaces.SpeciesGateway = (*CachedGateway)(nil)

// NewCachedGateway wraps next with cache
func NewCachedGateway(next interfaces.SpeciesGateway, cache Cache, logger *zap.Logger) *CachedGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGateway{next: next, cache: cache, logger: logger}
}

func fetch[T any](ctx context.Context, g *CachedGateway, key string, load func(context.Context) (*T, error)) (*T, error) {
	if v, ok := g.cache.Get(key); ok {
		if rec, ok := v.(*T); ok {
			return rec, nil
		}
	}

	v, err, shared := g.group.Do(key, func() (any, error) {
		rec, err := load(ctx)
		if err != nil {
			return nil, err
		}
		g.cache.Set(key, rec)
		return rec, nil
	})
	if err != nil {
		g.logger.Debug("Gateway fetch failed",
			zap.String("key", key),
			zap.Bool("shared", shared),
			zap.Error(err))
		return nil, err
	}
	return v.(*T), nil
}

// GetSpecies retrieves a species through the cache
func (g *CachedGateway) GetSpecies(ctx context.Context, id int) (*types.Species, error) {
	return fetch(ctx, g, fmt.Sprintf("species:%d", id), func(ctx context.Context) (*types.Species, error) {
		return g.next.GetSpecies(ctx, id)
	})
}

// GetMove retrieves a move through the cache
func (g *CachedGateway) GetMove(ctx context.Context, idOrName string) (*types.Move, error) {
	return fetch(ctx, g, "move:"+normalizeKey(idOrName), func(ctx context.Context) (*types.Move, error) {
		return g.next.GetMove(ctx, idOrName)
	})
}

// GetType retrieves a type through the cache
func (g *CachedGateway) GetType(ctx context.Context, name string) (*types.TypeInfo, error) {
	return fetch(ctx, g, "type:"+normalizeKey(name), func(ctx context.Context) (*types.TypeInfo, error) {
		return g.next.GetType(ctx, name)
	})
}

// GetEvolutionChain retrieves an evolution tree through the cache
func (g *CachedGateway) GetEvolutionChain(ctx context.Context, speciesID int) (*types.EvolutionNode, error) {
	return fetch(ctx, g, fmt.Sprintf("chain:%d", speciesID), func(ctx context.Context) (*types.EvolutionNode, error) {
		return g.next.GetEvolutionChain(ctx, speciesID)
	})
}

// GetItem retrieves an item through the cache
func (g *CachedGateway) GetItem(ctx context.Context, idOrName string) (*types.Item, error) {
	return fetch(ctx, g, "item:"+normalizeKey(idOrName), func(ctx context.Context) (*types.Item, error) {
		return g.next.GetItem(ctx, idOrName)
	})
}

// GetLocation retrieves a location through the cache
func (g *CachedGateway) GetLocation(ctx context.Context, name string) (*types.Location, error) {
	return fetch(ctx, g, "location:"+normalizeKey(name), func(ctx context.Context) (*types.Location, error) {
		return g.next.GetLocation(ctx, name)
	})
}
