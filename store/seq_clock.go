package store

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// StoreSeqClock 基于 KeyValueStore 计数器实现 core.SeqClock。
//
// 每个用户、每本书各占一个计数器 key，序号从 1 开始：
// 一本书的第 n 条评分拿到 ItemSeq = n，一个用户的第 n 条评分拿到
// UserSeq = n。原子性由底层 Incr 保证（Redis INCR / 内存加锁）。
type StoreSeqClock struct {
	kv core.KeyValueStore

	// KeyPrefix 是计数器 key 前缀，与 BookStoreAdapter 共用命名空间
	KeyPrefix string
}

var _ core.SeqClock = (*StoreSeqClock)(nil)

func NewStoreSeqClock(kv core.KeyValueStore, keyPrefix string) *StoreSeqClock {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &StoreSeqClock{kv: kv, KeyPrefix: keyPrefix}
}

func (c *StoreSeqClock) NextUserSeq(ctx context.Context, userID string) (int64, error) {
	return c.kv.Incr(ctx, c.KeyPrefix+":seq:user:"+userID)
}

func (c *StoreSeqClock) NextItemSeq(ctx context.Context, isbn string) (int64, error) {
	return c.kv.Incr(ctx, c.KeyPrefix+":seq:book:"+isbn)
}
