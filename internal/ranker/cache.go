package ranker

import "sync"

// termCache maps normalized terms to their ids. Term ids never change
// once assigned, so entries only go away when the index is cleared.
type termCache struct {
	mu  sync.RWMutex
	ids map[string]int64
}

func newTermCache() *termCache {
	return &termCache{ids: make(map[string]int64)}
}

func (c *termCache) get(term string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[term]
	return id, ok
}

func (c *termCache) put(term string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[term] = id
}

func (c *termCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]int64)
}

func (c *termCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
