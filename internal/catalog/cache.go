package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache fronts a Provider's add-on lookups with a Redis JSON cache. Package
// prices are never cached: they depend on group size and travel period and
// must reflect the catalog at recalculation time.
type Cache struct {
	Provider Provider
	Client   *redis.Client
	TTL      time.Duration
}

// LookupAddOns serves cached add-on records, batching misses into one
// provider call.
func (c *Cache) LookupAddOns(ctx context.Context, ids []uuid.UUID) ([]AddOn, error) {
	if c == nil || c.Provider == nil {
		return nil, ErrUnavailable
	}
	if c.Client == nil {
		return c.Provider.LookupAddOns(ctx, ids)
	}

	out := make([]AddOn, 0, len(ids))
	missing := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		data, err := c.Client.Get(ctx, cacheKey(id)).Bytes()
		if err != nil {
			missing = append(missing, id)
			continue
		}
		var a AddOn
		if err := json.Unmarshal(data, &a); err != nil {
			missing = append(missing, id)
			continue
		}
		out = append(out, a)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.Provider.LookupAddOns(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, a := range fetched {
		if data, err := json.Marshal(a); err == nil {
			_ = c.Client.Set(ctx, cacheKey(a.ID), data, c.ttl()).Err()
		}
	}
	return append(out, fetched...), nil
}

// PackagePrice delegates straight to the provider.
func (c *Cache) PackagePrice(ctx context.Context, req PackagePriceReq) (PackagePrice, error) {
	if c == nil || c.Provider == nil {
		return PackagePrice{}, ErrUnavailable
	}
	return c.Provider.PackagePrice(ctx, req)
}

// Invalidate drops a cached add-on record, used when drift is detected.
func (c *Cache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c == nil || c.Client == nil {
		return
	}
	_ = c.Client.Del(ctx, cacheKey(id)).Err()
}

func (c *Cache) ttl() time.Duration {
	if c.TTL <= 0 {
		return 5 * time.Minute
	}
	return c.TTL
}

func cacheKey(id uuid.UUID) string {
	return "catalog:addon:" + id.String()
}
