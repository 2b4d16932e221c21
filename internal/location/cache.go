// Package location holds the single most recent user coordinate for a
// bounded time so callers can skip a fresh device fix.
package location

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spinplate/internal/model"
)

// DefaultTTL is how long a captured coordinate stays usable.
const DefaultTTL = 15 * time.Minute

// Cached is a coordinate plus the time it was captured.
type Cached struct {
	model.Coordinate
	CapturedAt time.Time `json:"captured_at"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// Cache is a single-slot, time-bounded coordinate cache.
type Cache struct {
	mu    sync.RWMutex
	entry *Cached
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached coordinate while now-capturedAt < TTL, else nil.
// A stale entry is left in place.
func (c *Cache) Get() *model.Coordinate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || c.now().Sub(c.entry.CapturedAt) >= c.ttl {
		return nil
	}
	coord := c.entry.Coordinate
	return &coord
}

// Set stores the coordinate stamped with the current time, replacing any
// previous entry.
func (c *Cache) Set(lat, lon float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &Cached{
		Coordinate: model.Coordinate{Latitude: lat, Longitude: lon},
		CapturedAt: c.now(),
	}
}

// Peek returns the raw entry regardless of age.
func (c *Cache) Peek() (Cached, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return Cached{}, false
	}
	return *c.entry, true
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Locator produces a fresh device coordinate.
type Locator interface {
	Locate(ctx context.Context) (model.Coordinate, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (model.Coordinate, error)

// Locate implements Locator.
func (f LocatorFunc) Locate(ctx context.Context) (model.Coordinate, error) { return f(ctx) }

// Resolve returns the cached coordinate when fresh, otherwise asks loc and
// caches the answer. The boolean reports whether the cache was used.
func (c *Cache) Resolve(ctx context.Context, loc Locator) (model.Coordinate, bool, error) {
	if coord := c.Get(); coord != nil {
		return *coord, true, nil
	}
	if loc == nil {
		return model.Coordinate{}, false, eris.New("location: no fresh coordinate and no locator")
	}
	coord, err := loc.Locate(ctx)
	if err != nil {
		return model.Coordinate{}, false, eris.Wrap(err, "location: locate")
	}
	if err := coord.Validate(); err != nil {
		return model.Coordinate{}, false, eris.Wrap(err, "location: invalid fix")
	}
	c.Set(coord.Latitude, coord.Longitude)
	return coord, false, nil
}
