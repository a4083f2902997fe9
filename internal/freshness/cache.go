// Package freshness keeps a short rolling history of generated batches so
// the next prompt can ask the model not to repeat them.
package freshness

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultCapacity is the number of batches retained per service.
const DefaultCapacity = 5

// Store persists the batch history. Append must be atomic with respect to
// the capacity trim.
type Store interface {
	Append(ctx context.Context, batch []string, capacity int) error
	Batches(ctx context.Context) ([][]string, error)
}

// Cache is the per-service freshness history plus its seed phrases.
type Cache struct {
	name     string
	seeds    []string
	capacity int
	store    Store
	log      zerolog.Logger
}

// New creates a Cache. capacity < 1 falls back to DefaultCapacity and a nil
// store to an in-process MemoryStore.
func New(name string, seeds []string, capacity int, store Store, log zerolog.Logger) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{
		name:     name,
		seeds:    seeds,
		capacity: capacity,
		store:    store,
		log:      log.With().Str("cache", name).Logger(),
	}
}

// Name returns the service name the cache belongs to.
func (c *Cache) Name() string {
	return c.name
}

// Capacity returns the maximum number of retained batches.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Record appends batch and evicts the oldest batches beyond capacity.
// Empty batches are recorded too; they simply add no exclusions.
func (c *Cache) Record(ctx context.Context, batch []string) error {
	cp := make([]string, 0, len(batch))
	for _, item := range batch {
		if item = strings.TrimSpace(item); item != "" {
			cp = append(cp, item)
		}
	}
	if err := c.store.Append(ctx, cp, c.capacity); err != nil {
		c.log.Error().Err(err).Int("items", len(cp)).Msg("Failed to record batch")
		return err
	}
	c.log.Debug().Int("items", len(cp)).Msg("Recorded batch")
	return nil
}

// Batches returns the retained batches, oldest first.
func (c *Cache) Batches(ctx context.Context) [][]string {
	batches, err := c.store.Batches(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to read batches, using seeds only")
		return nil
	}
	return batches
}

// Items returns the seed phrases followed by every retained item.
func (c *Cache) Items(ctx context.Context) []string {
	items := append([]string(nil), c.seeds...)
	for _, batch := range c.Batches(ctx) {
		items = append(items, batch...)
	}
	return items
}

// ExclusionText is Items joined into a comma separated clause.
func (c *Cache) ExclusionText(ctx context.Context) string {
	return strings.Join(c.Items(ctx), ", ")
}

// Overlap returns the items of batch that are already excluded,
// compared case-insensitively.
func (c *Cache) Overlap(ctx context.Context, batch []string) []string {
	seen := make(map[string]struct{})
	for _, item := range c.Items(ctx) {
		seen[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	var dup []string
	for _, item := range batch {
		if _, ok := seen[strings.ToLower(strings.TrimSpace(item))]; ok {
			dup = append(dup, item)
		}
	}
	return dup
}
