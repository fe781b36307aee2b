package services

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/yashrajoria/storefront-bff/models"
)

// loadTimeout bounds a shared fetch, which outlives the caller that started it.
const loadTimeout = 10 * time.Second

// cartCache holds rendered cart views keyed by Session.CartKey.
//
// Concurrent loads of one key share a single upstream call. Each device
// has one active key; a load that finishes after its device moved to
// another key, or after the key was invalidated, is returned to its caller
// but not cached.
type cartCache struct {
	views  *expirable.LRU[string, models.Cart]
	active *lru.Cache[string, string]
	gens   *lru.Cache[string, uint64]
	clock  atomic.Uint64
	group  singleflight.Group

	loadTimeout time.Duration
}

func newCartCache(size int, ttl time.Duration) (*cartCache, error) {
	active, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	gens, err := lru.New[string, uint64](size)
	if err != nil {
		return nil, err
	}
	return &cartCache{
		views:  expirable.NewLRU[string, models.Cart](size, nil, ttl),
		active: active,
		gens:   gens,

		loadTimeout: loadTimeout,
	}, nil
}

// Activate records key as the cart the device currently addresses.
func (c *cartCache) Activate(deviceID, key string) {
	if deviceID == "" {
		return
	}
	c.active.Add(deviceID, key)
}

func (c *cartCache) isActive(deviceID, key string) bool {
	if deviceID == "" {
		return true
	}
	current, ok := c.active.Get(deviceID)
	return ok && current == key
}

func (c *cartCache) generation(key string) uint64 {
	gen, _ := c.gens.Get(key)
	return gen
}

// Invalidate drops the cached view of key and detaches in-flight loads
// so they cannot repopulate it.
func (c *cartCache) Invalidate(key string) {
	c.gens.Add(key, c.clock.Add(1))
	c.views.Remove(key)
	c.group.Forget(key)
}

// Load returns the cached view of key or fetches it, making key the
// device's active cart. hit reports whether the value came from the cache.
func (c *cartCache) Load(ctx context.Context, deviceID, key string, fetch func(context.Context) (models.Cart, error)) (cart models.Cart, hit bool, err error) {
	c.Activate(deviceID, key)
	return c.load(ctx, deviceID, key, fetch)
}

// Refresh is Load for background warming: it never changes the device's
// active key and does nothing once key is no longer active.
func (c *cartCache) Refresh(ctx context.Context, deviceID, key string, fetch func(context.Context) (models.Cart, error)) (cart models.Cart, skipped bool, err error) {
	if !c.isActive(deviceID, key) {
		return models.Cart{}, true, nil
	}
	cart, _, err = c.load(ctx, deviceID, key, fetch)
	return cart, false, err
}

func (c *cartCache) load(ctx context.Context, deviceID, key string, fetch func(context.Context) (models.Cart, error)) (models.Cart, bool, error) {
	if cached, ok := c.views.Get(key); ok {
		return cached, true, nil
	}

	gen := c.generation(key)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Joined callers must not fail because the first caller went away.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		fetched, err := fetch(fetchCtx)
		if err != nil {
			return models.Cart{}, err
		}
		if c.isActive(deviceID, key) && c.generation(key) == gen {
			c.views.Add(key, fetched)
		}
		return fetched, nil
	})
	if err != nil {
		return models.Cart{}, false, err
	}
	return v.(models.Cart), false, nil
}
