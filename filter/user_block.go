package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// UserBlock 过滤掉用户主动拉黑的书（"不感兴趣" 反馈）。
type UserBlock struct {
	// Store 用于从存储中读取用户拉黑列表
	Store UserBlockStore

	// KeyPrefix 是 Store 中的 key 前缀，实际 key 为 {KeyPrefix}:{UserID}
	KeyPrefix string
}

// UserBlockStore 是用户拉黑名单的存储接口。
type UserBlockStore interface {
	// GetUserBlocks 获取用户拉黑的书目 ISBN 列表
	GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]string, error)
}

// NewUserBlock 创建一个用户拉黑过滤器。
func NewUserBlock(storeAdapter *StoreAdapter, keyPrefix string) *UserBlock {
	var store UserBlockStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &UserBlock{Store: store, KeyPrefix: keyPrefix}
}

func (f *UserBlock) Name() string { return "filter.user_block" }

func (f *UserBlock) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Store == nil {
		return false, nil
	}

	keyPrefix := f.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "reader:block"
	}

	blocked, err := f.Store.GetUserBlocks(ctx, rctx.UserID, keyPrefix)
	if err != nil {
		return false, nil
	}
	for _, isbn := range blocked {
		if item.ID == isbn {
			return true, nil
		}
	}
	return false, nil
}
