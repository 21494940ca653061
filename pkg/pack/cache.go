package pack

import (
	"container/list"
	"sync"
)

// blobCache is a bounded LRU of decoded sample payloads keyed by entry
// offset. It belongs to one Reader and dies with it.
type blobCache struct {
	mu    sync.Mutex
	limit int
	ll    *list.List
	items map[uint64]*list.Element
}

type blobCacheEntry struct {
	offset uint64
	data   []byte
}

func newBlobCache(limit int) *blobCache {
	return &blobCache{
		limit: limit,
		ll:    list.New(),
		items: make(map[uint64]*list.Element),
	}
}

func (c *blobCache) get(offset uint64) ([]byte, bool) {
	if c.limit <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[offset]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*blobCacheEntry).data, true
}

func (c *blobCache) put(offset uint64, data []byte) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[offset]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*blobCacheEntry).data = data
		return
	}
	c.items[offset] = c.ll.PushFront(&blobCacheEntry{offset: offset, data: data})
	for c.ll.Len() > c.limit {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*blobCacheEntry).offset)
	}
}

func (c *blobCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *blobCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
}
