// Package viewstate holds the orders currently shown on screen. It mirrors
// the last search and follows successful edits and deletes.
package viewstate

import (
	"sync"

	"relatorios/internal/models"
)

// RenderFunc receives a snapshot after every mutation.
type RenderFunc func(orders []*models.Order)

// Cache is safe for concurrent use. Records are never mutated in place, so a
// snapshot handed out stays valid after later changes.
type Cache struct {
	mu     sync.Mutex
	orders []*models.Order
	render RenderFunc
}

// New returns an empty cache. render may be nil.
func New(render RenderFunc) *Cache {
	return &Cache{render: render}
}

// SetAll replaces the cached list.
func (c *Cache) SetAll(orders []*models.Order) {
	c.mu.Lock()
	c.orders = append(make([]*models.Order, 0, len(orders)), orders...)
	snap := c.snapshot()
	c.mu.Unlock()
	c.emit(snap)
}

// PatchOne shallow-merges fields into the record with id. Absent ids leave
// the list unchanged.
func (c *Cache) PatchOne(id string, fields models.Fields) {
	c.mu.Lock()
	for i, o := range c.orders {
		if o.ID != id {
			continue
		}
		patched := *o
		patched.Merge(fields)
		c.orders[i] = &patched
		break
	}
	snap := c.snapshot()
	c.mu.Unlock()
	c.emit(snap)
}

// RemoveOne drops every record with id.
func (c *Cache) RemoveOne(id string) {
	c.mu.Lock()
	kept := make([]*models.Order, 0, len(c.orders))
	for _, o := range c.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	c.orders = kept
	snap := c.snapshot()
	c.mu.Unlock()
	c.emit(snap)
}

// All returns a snapshot of the cached list.
func (c *Cache) All() []*models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

func (c *Cache) snapshot() []*models.Order {
	return append(make([]*models.Order, 0, len(c.orders)), c.orders...)
}

func (c *Cache) emit(snap []*models.Order) {
	if c.render != nil {
		c.render(snap)
	}
}
