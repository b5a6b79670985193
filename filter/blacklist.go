package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Blacklist 过滤掉全局下架的书目（版权下线、内容违规等）。
// 名单来源：内存列表，或 Store 里的 JSON 列表（运营侧随时可改）。
type Blacklist struct {
	// ISBNs 是内存中的下架书目列表
	ISBNs []string

	// Store 用于从存储中读取名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的名单 key（可选）
	Key string
}

// BlacklistStore 是下架名单的存储接口。
type BlacklistStore interface {
	// GetBlacklist 获取下架书目 ISBN 列表
	GetBlacklist(ctx context.Context, key string) ([]string, error)
}

// NewBlacklist 创建一个下架过滤器。
func NewBlacklist(isbns []string, storeAdapter *StoreAdapter, key string) *Blacklist {
	var store BlacklistStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &Blacklist{ISBNs: isbns, Store: store, Key: key}
}

func (f *Blacklist) Name() string { return "filter.blacklist" }

func (f *Blacklist) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, isbn := range f.ISBNs {
		if item.ID == isbn {
			return true, nil
		}
	}

	if f.Store != nil && f.Key != "" {
		blacklist, err := f.Store.GetBlacklist(ctx, f.Key)
		if err == nil {
			for _, isbn := range blacklist {
				if item.ID == isbn {
					return true, nil
				}
			}
		}
	}
	return false, nil
}
