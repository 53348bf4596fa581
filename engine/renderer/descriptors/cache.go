package descriptors

import (
	"github.com/spaghettifunk/astra/engine/core"
)

/**
 * @brief A per-goroutine cache of pre-reserved slots for one
 * (viewType, visibility) store. The common allocation path pops from the
 * local stack without touching the store mutex; the cache refills in
 * bursts of PerThreadCacheSize. Not safe for concurrent use: each loading
 * goroutine owns its own cache and must Flush it before exiting.
 */
type HandleCache struct {
	allocator  *DescriptorAllocator
	viewType   ResourceViewType
	visibility DescriptorVisibility
	size       uint32
	reserved   []*DescriptorHandle
}

func (da *DescriptorAllocator) NewHandleCache(t ResourceViewType, v DescriptorVisibility) (*HandleCache, error) {
	if _, err := da.storeFor(t, v); err != nil {
		return nil, err
	}
	size := da.config.PerThreadCacheSize
	return &HandleCache{
		allocator:  da,
		viewType:   t,
		visibility: v,
		size:       size,
		reserved:   make([]*DescriptorHandle, 0, size),
	}, nil
}

// Allocate hands out a pre-reserved handle, refilling the cache from the
// store when it runs dry. A refill that hits capacity mid-burst is not an
// error as long as at least one slot was obtained.
func (c *HandleCache) Allocate() (*DescriptorHandle, error) {
	if len(c.reserved) == 0 {
		if err := c.refill(); err != nil {
			return InvalidHandle(), err
		}
	}
	n := len(c.reserved)
	h := c.reserved[n-1]
	c.reserved = c.reserved[:n-1]
	return h, nil
}

func (c *HandleCache) refill() error {
	for i := uint32(0); i < c.size; i++ {
		h, err := c.allocator.Allocate(c.viewType, c.visibility)
		if err != nil {
			if len(c.reserved) > 0 {
				// Partial refill still serves the caller; the store is
				// simply close to full.
				core.LogDebug("handle cache %s/%s refilled %d of %d slots", c.viewType, c.visibility, len(c.reserved), c.size)
				return nil
			}
			return err
		}
		c.reserved = append(c.reserved, h)
	}
	return nil
}

// Reserved reports how many slots the cache currently holds.
func (c *HandleCache) Reserved() int {
	return len(c.reserved)
}

// Flush returns every unused slot to the store. Call before the owning
// goroutine exits, or the reserved slots leak until allocator shutdown.
func (c *HandleCache) Flush() {
	for _, h := range c.reserved {
		h.Release()
	}
	c.reserved = c.reserved[:0]
}
