package schedule

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedServices is a read-through LRU in front of a ServiceSource.
// Entries expire after ttl so operator edits become visible without a restart.
type CachedServices struct {
	source ServiceSource
	cache  *expirable.LRU[string, *Service]
}

// NewCachedServices wraps source with an LRU of the given size and ttl.
func NewCachedServices(source ServiceSource, size int, ttl time.Duration) *CachedServices {
	if size <= 0 {
		size = 256
	}
	return &CachedServices{
		source: source,
		cache:  expirable.NewLRU[string, *Service](size, nil, ttl),
	}
}

func cacheKey(businessID, serviceID string) string {
	return businessID + "/" + serviceID
}

// Get returns a copy of the cached service, loading it on miss.
func (c *CachedServices) Get(ctx context.Context, businessID, serviceID string) (*Service, error) {
	key := cacheKey(businessID, serviceID)
	if svc, ok := c.cache.Get(key); ok {
		return cloneService(svc), nil
	}
	svc, err := c.source.Get(ctx, businessID, serviceID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneService(svc))
	return cloneService(svc), nil
}

// cloneService deep-copies the override maps so callers cannot mutate a
// cached entry.
func cloneService(svc *Service) *Service {
	cp := *svc
	if svc.Schedule != nil {
		cp.Schedule = make(map[string][]string, len(svc.Schedule))
		for day, slots := range svc.Schedule {
			cp.Schedule[day] = slices.Clone(slots)
		}
	}
	cp.PricesByWeekday = maps.Clone(svc.PricesByWeekday)
	return &cp
}

// Invalidate drops a cached service.
func (c *CachedServices) Invalidate(businessID, serviceID string) {
	c.cache.Remove(cacheKey(businessID, serviceID))
}
