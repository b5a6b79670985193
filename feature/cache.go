package feature

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/bookrec/core"
)

const (
	defaultCacheSize = 10000
	defaultCacheTTL  = 5 * time.Minute
)

// CachedService 是 FeatureService 的本地缓存装饰器，减少对远程特征库
// （feast 等）的访问。用户与书侧特征分池缓存，TTL 过期 + 超量时按
// 最久未访问淘汰。
type CachedService struct {
	inner core.FeatureService

	mu    sync.Mutex
	users map[string]*cacheEntry
	items map[string]*cacheEntry

	maxSize int
	ttl     time.Duration

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

type cacheEntry struct {
	features   map[string]float64
	expireTime time.Time
	accessTime time.Time
}

// NewCachedService 包装 inner，maxSize/ttl 非正时用默认值（10000 条 / 5 分钟）。
func NewCachedService(inner core.FeatureService, maxSize int, ttl time.Duration) *CachedService {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	c := &CachedService{
		inner:       inner,
		users:       make(map[string]*cacheEntry),
		items:       make(map[string]*cacheEntry),
		maxSize:     maxSize,
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	c.cleanupTicker = time.NewTicker(time.Minute)
	go c.cleanupLoop()

	return c
}

var _ core.FeatureService = (*CachedService)(nil)

func (c *CachedService) Name() string {
	return "cached(" + c.inner.Name() + ")"
}

func (c *CachedService) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	if features, ok := c.lookup(c.users, userID); ok {
		return features, nil
	}
	features, err := c.inner.GetUserFeatures(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.put(c.users, userID, features)
	return features, nil
}

func (c *CachedService) BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error) {
	return c.batchGet(ctx, c.users, userIDs, c.inner.BatchGetUserFeatures)
}

func (c *CachedService) GetItemFeatures(ctx context.Context, isbn string) (map[string]float64, error) {
	if features, ok := c.lookup(c.items, isbn); ok {
		return features, nil
	}
	features, err := c.inner.GetItemFeatures(ctx, isbn)
	if err != nil {
		return nil, err
	}
	c.put(c.items, isbn, features)
	return features, nil
}

func (c *CachedService) BatchGetItemFeatures(ctx context.Context, isbns []string) (map[string]map[string]float64, error) {
	return c.batchGet(ctx, c.items, isbns, c.inner.BatchGetItemFeatures)
}

// InvalidateUser 使某用户的缓存失效（画像更新后调用）。
func (c *CachedService) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, userID)
}

// InvalidateItem 使某本书的缓存失效（指标更新后调用）。
func (c *CachedService) InvalidateItem(isbn string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, isbn)
}

// Close 停止清理协程并关闭内层服务。
func (c *CachedService) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	return c.inner.Close(ctx)
}

// batchGet 命中的直接取缓存，未命中的合并成一次内层批量调用。
func (c *CachedService) batchGet(
	ctx context.Context,
	pool map[string]*cacheEntry,
	ids []string,
	fetch func(context.Context, []string) (map[string]map[string]float64, error),
) (map[string]map[string]float64, error) {
	result := make(map[string]map[string]float64, len(ids))
	missing := make([]string, 0, len(ids))

	for _, id := range ids {
		if features, ok := c.lookup(pool, id); ok {
			result[id] = features
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, features := range fetched {
		c.put(pool, id, features)
		result[id] = features
	}
	return result, nil
}

func (c *CachedService) lookup(pool map[string]*cacheEntry, key string) (map[string]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := pool[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expireTime) {
		delete(pool, key)
		return nil, false
	}
	entry.accessTime = time.Now()
	return entry.features, true
}

func (c *CachedService) put(pool map[string]*cacheEntry, key string, features map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(pool) >= c.maxSize {
		evictOldest(pool)
	}
	pool[key] = &cacheEntry{
		features:   features,
		expireTime: time.Now().Add(c.ttl),
		accessTime: time.Now(),
	}
}

// evictOldest 删除最久未访问的条目，调用方须持锁。
func evictOldest(pool map[string]*cacheEntry) {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, entry := range pool {
		if first || entry.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessTime
			first = false
		}
	}
	if !first {
		delete(pool, oldestKey)
	}
}

func (c *CachedService) cleanupLoop() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.cleanExpired()
		case <-c.stopCleanup:
			c.cleanupTicker.Stop()
			return
		}
	}
}

func (c *CachedService) cleanExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.users {
		if now.After(entry.expireTime) {
			delete(c.users, key)
		}
	}
	for key, entry := range c.items {
		if now.After(entry.expireTime) {
			delete(c.items, key)
		}
	}
}
