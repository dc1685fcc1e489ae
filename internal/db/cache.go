package db

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"localcosmos/keyctl/internal/natureguide"
)

// GuideCache keeps parsed guides in memory. Concurrent loads of the same
// guide share one database read.
type GuideCache struct {
	db     *DB
	mu     sync.RWMutex
	guides map[string]*natureguide.NatureGuide
	flight singleflight.Group
	loads  int
}

// NewGuideCache returns an empty cache over d.
func NewGuideCache(d *DB) *GuideCache {
	return &GuideCache{db: d, guides: make(map[string]*natureguide.NatureGuide)}
}

// Get returns the parsed guide, loading it on first use.
func (c *GuideCache) Get(guideUUID string) (*natureguide.NatureGuide, error) {
	c.mu.RLock()
	g, ok := c.guides[guideUUID]
	c.mu.RUnlock()
	if ok {
		return g, nil
	}

	v, err, _ := c.flight.Do(guideUUID, func() (any, error) {
		g, err := c.db.LoadGuide(guideUUID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.guides[guideUUID] = g
		c.loads++
		c.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*natureguide.NatureGuide), nil
}

// Invalidate drops a cached guide, typically after a re-import.
func (c *GuideCache) Invalidate(guideUUID string) {
	c.mu.Lock()
	delete(c.guides, guideUUID)
	c.mu.Unlock()
}

// Loads returns how many times the cache read a guide from the database.
func (c *GuideCache) Loads() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}
