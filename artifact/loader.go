package artifact

import (
	"context"
	"sync"

	"github.com/rushteam/bookrec/core"
)

// Loader 为推荐器提供产物快照与可选书名列表，缓存策略由实现决定。
type Loader interface {
	Snapshot(ctx context.Context) (*core.Snapshot, error)
	BookNames(ctx context.Context) ([]string, error)
}

// Fresh 每次调用都从存储重新读取，训练后的新产物立即可见。
type Fresh struct {
	Store *Store
}

func (f *Fresh) Snapshot(ctx context.Context) (*core.Snapshot, error) {
	return f.Store.Load(ctx)
}

// BookNames 只读取书名产物，不加载矩阵与索引。
func (f *Fresh) BookNames(ctx context.Context) ([]string, error) {
	return f.Store.LoadBookNames(ctx)
}

// Cache 缓存一份快照和书名列表，只有显式 Reload 才会刷新。
// 首次读取时懒加载；Reload 失败时保留旧值。
type Cache struct {
	store *Store

	mu      sync.RWMutex
	current *core.Snapshot
	names   []string
}

func NewCache(store *Store) *Cache {
	return &Cache{store: store}
}

func (c *Cache) Snapshot(ctx context.Context) (*core.Snapshot, error) {
	c.mu.RLock()
	snap := c.current
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return c.current, nil
	}
	snap, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.current = snap
	return snap, nil
}

func (c *Cache) BookNames(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	names := c.names
	c.mu.RUnlock()
	if names != nil {
		return names, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.names != nil {
		return c.names, nil
	}
	names, err := c.store.LoadBookNames(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	c.names = names
	return names, nil
}

// Reload 重新读取快照与书名，两者都成功后一起替换。
func (c *Cache) Reload(ctx context.Context) error {
	snap, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	names, err := c.store.LoadBookNames(ctx)
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	c.mu.Lock()
	c.current = snap
	c.names = names
	c.mu.Unlock()
	return nil
}

// Invalidate 丢弃当前快照和书名，下次读取时重新加载。
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.names = nil
	c.mu.Unlock()
}

var (
	_ Loader = (*Fresh)(nil)
	_ Loader = (*Cache)(nil)
)
