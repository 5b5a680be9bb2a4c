package service

import "sync"

// CollectionCache 店铺集合(分类)的远端 ID 缓存
// 作用域限定为一次批量运行：由编排器创建、随运行结束丢弃，
// 不做进程级共享，避免跨运行的陈旧数据
type CollectionCache struct {
	mu  sync.Mutex
	ids map[string]int64 // 集合标题 -> 远端 ID
}

// NewCollectionCache 创建集合缓存
func NewCollectionCache() *CollectionCache {
	return &CollectionCache{ids: make(map[string]int64)}
}

// Get 读取缓存
func (c *CollectionCache) Get(title string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[title]
	return id, ok
}

// Put 写入缓存
func (c *CollectionCache) Put(title string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[title] = id
}

// Invalidate 显式失效单个条目（远端集合被删除时使用）
func (c *CollectionCache) Invalidate(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, title)
}
