// Package treecache is the process-wide weak cache of DirTrees described
// by the cyclic-ownership design note: multiple subscriptions on the same
// root share one Tree instance instead of walking and holding independent
// copies. The cache itself never keeps a tree alive — every Subscription
// holding a *tree.Tree is the strong reference; once the last one drops
// it, the tree is collected and the cache slot clears itself.
package treecache

import (
	"runtime"
	"sync"
	"weak"

	"github.com/watchkit/dirwatch/internal/tree"
)

type Cache struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[tree.Tree]
}

func New() *Cache {
	return &Cache{entries: make(map[string]weak.Pointer[tree.Tree])}
}

// GetOrCreate returns the live tree cached for root, or calls create to
// build one and installs it in the cache.
func (c *Cache) GetOrCreate(root string, create func() (*tree.Tree, error)) (*tree.Tree, error) {
	c.mu.Lock()
	if wp, ok := c.entries[root]; ok {
		if t := wp.Value(); t != nil {
			c.mu.Unlock()
			return t, nil
		}
		delete(c.entries, root)
	}
	c.mu.Unlock()

	t, err := create()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[root] = weak.Make(t)
	c.mu.Unlock()

	runtime.AddCleanup(t, c.clear, root)
	return t, nil
}

func (c *Cache) clear(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wp, ok := c.entries[root]; ok && wp.Value() == nil {
		delete(c.entries, root)
	}
}
