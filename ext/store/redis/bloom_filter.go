// Package redis 提供基于 Redis + bits-and-blooms/bloom 的布隆过滤器，
// 给曝光过滤器的长周期检查用（短周期走 ISBN 列表）。
//
// 独立子模块，避免主模块引入 bloom 依赖。典型接线：
//
//	rs, _ := store.NewRedisStore("localhost:6379", 0)
//	checker := redis.NewRedisBloomChecker(rs, 1000000, 0.01)
//	adapter := filter.NewStoreAdapterWithBloom(rs, checker)
//	exposed := filter.NewExposed(adapter, "exposed", 7*24*3600, 30)
package redis

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/redis/go-redis/v9"

	"github.com/rushteam/bookrec/filter"
	"github.com/rushteam/bookrec/store"
)

var _ filter.BloomChecker = (*RedisBloomChecker)(nil)

// RedisBloomChecker 把按天分片的曝光布隆过滤器存在 Redis 里，
// 整块序列化读写（bloom.WriteTo / ReadFrom），并在本地缓存反序列化
// 结果避免每次检查都拉全量位图。
//
// key 的分片由调用方决定（filter.StoreAdapter 按 {prefix}:bloom:{userID}:{date}
// 生成），这里只管单个 key 的读写与检查。
type RedisBloomChecker struct {
	client *redis.Client

	// capacity 预期容量，falsePositiveRate 期望误判率（如 0.01 = 1%）。
	// 两者决定位图大小，读写两侧必须一致，否则反序列化出的位图不可用。
	capacity          uint
	falsePositiveRate float64

	mu    sync.RWMutex
	cache map[string]*bloom.BloomFilter
}

// NewRedisBloomChecker 基于 store.RedisStore 创建检查器。
func NewRedisBloomChecker(s *store.RedisStore, capacity uint, falsePositiveRate float64) *RedisBloomChecker {
	return NewRedisBloomCheckerWithClient(s.GetClient(), capacity, falsePositiveRate)
}

// NewRedisBloomCheckerWithClient 直接用 *redis.Client 创建检查器。
func NewRedisBloomCheckerWithClient(client *redis.Client, capacity uint, falsePositiveRate float64) *RedisBloomChecker {
	return &RedisBloomChecker{
		client:            client,
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
		cache:             make(map[string]*bloom.BloomFilter),
	}
}

// CheckInBloomFilter 检查 isbn 是否在 key 对应的布隆过滤器中。
// true 表示可能已曝光（有误判），false 表示一定没有。key 不存在视为没有。
func (r *RedisBloomChecker) CheckInBloomFilter(ctx context.Context, key string, isbn string) (bool, error) {
	r.mu.RLock()
	cached := r.cache[key]
	r.mu.RUnlock()
	if cached != nil {
		return cached.Test([]byte(isbn)), nil
	}

	bf, err := r.load(ctx, key)
	if err != nil {
		return false, err
	}
	if bf == nil {
		return false, nil
	}

	r.mu.Lock()
	r.cache[key] = bf
	r.mu.Unlock()
	return bf.Test([]byte(isbn)), nil
}

// AddToBloomFilter 把 isbn 写入 key 对应的布隆过滤器（曝光采集侧用）。
// ttl 单位秒，0 表示不过期。
func (r *RedisBloomChecker) AddToBloomFilter(ctx context.Context, key string, isbn string, ttl int) error {
	return r.BatchAddToBloomFilter(ctx, key, []string{isbn}, ttl)
}

// BatchAddToBloomFilter 批量写入后整块回写 Redis。
//
// 读改写没有跨进程互斥，并发写同一个 key 会丢更新；曝光采集按用户
// 分 key 且单写入方，够用。
func (r *RedisBloomChecker) BatchAddToBloomFilter(ctx context.Context, key string, isbns []string, ttl int) error {
	if len(isbns) == 0 {
		return nil
	}

	r.mu.RLock()
	bf := r.cache[key]
	r.mu.RUnlock()

	if bf == nil {
		loaded, err := r.load(ctx, key)
		if err != nil {
			return err
		}
		bf = loaded
		if bf == nil {
			bf = bloom.NewWithEstimates(r.capacity, r.falsePositiveRate)
		}
	}

	for _, isbn := range isbns {
		bf.Add([]byte(isbn))
	}

	if err := r.save(ctx, key, bf, ttl); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[key] = bf
	r.mu.Unlock()
	return nil
}

// ClearCache 清空本地缓存，强制下次检查从 Redis 重新加载。
func (r *RedisBloomChecker) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*bloom.BloomFilter)
}

// ClearCacheKey 清除单个 key 的本地缓存。
func (r *RedisBloomChecker) ClearCacheKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, key)
}

// load 从 Redis 读出并反序列化位图；key 不存在返回 (nil, nil)。
func (r *RedisBloomChecker) load(ctx context.Context, key string) (*bloom.BloomFilter, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bloom filter %s: %w", key, err)
	}

	bf := bloom.NewWithEstimates(r.capacity, r.falsePositiveRate)
	if _, err := bf.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("deserialize bloom filter %s: %w", key, err)
	}
	return bf, nil
}

func (r *RedisBloomChecker) save(ctx context.Context, key string, bf *bloom.BloomFilter, ttl int) error {
	var buf bytes.Buffer
	if _, err := bf.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialize bloom filter %s: %w", key, err)
	}

	var expiration time.Duration
	if ttl > 0 {
		expiration = time.Duration(ttl) * time.Second
	}
	if err := r.client.Set(ctx, key, buf.Bytes(), expiration).Err(); err != nil {
		return fmt.Errorf("save bloom filter %s: %w", key, err)
	}
	return nil
}
