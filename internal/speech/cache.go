package speech

import "sync"

// Cache maps exact text to decoded audio. Keys are case and whitespace
// sensitive. Entries are never evicted.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Buffer
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Buffer)}
}

// Get returns the buffer cached for text.
func (c *Cache) Get(text string) (Buffer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[text]
	return b, ok
}

// Put stores buf under text, replacing any previous entry.
func (c *Cache) Put(text string, buf Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[text] = buf
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
