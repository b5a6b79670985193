package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Exposed 过滤掉最近已经推给用户看过的书，避免榜单连续几天长一个样。
// 已读排除（Rated）管的是用户真实评过分的书，这里管的是曝光记录。
//
// 两种数据源：
//  1. ISBN 列表集合（近期数据），通过 GetExposedItems 获取
//  2. 布隆过滤器（较长周期数据，按天分片），通过 CheckExposedInBloomFilter 检查
type Exposed struct {
	// Store 用于从存储中读取曝光历史
	Store ExposedStore

	// KeyPrefix 是 Store 中的 key 前缀
	// ISBN 列表：实际 key 为 {KeyPrefix}:{UserID}
	// 布隆过滤器：实际 key 为 {KeyPrefix}:bloom:{UserID}:{date}
	KeyPrefix string

	// TimeWindow 是 ISBN 列表的曝光时间窗口（秒）
	TimeWindow int64

	// BloomDayWindow 是布隆过滤器回看的天数，0 表示不查布隆过滤器
	BloomDayWindow int
}

// ExposedStore 是曝光历史的存储接口。
type ExposedStore interface {
	// GetExposedItems 获取用户在时间窗口内已曝光的 ISBN 列表（近期数据）
	GetExposedItems(ctx context.Context, userID string, keyPrefix string, timeWindow int64) ([]string, error)

	// CheckExposedInBloomFilter 检查 ISBN 是否在近 dayWindow 天的布隆过滤器中。
	// 返回 true 表示可能已曝光（布隆过滤器有误判），false 表示一定没有
	CheckExposedInBloomFilter(ctx context.Context, userID string, isbn string, keyPrefix string, dayWindow int) (bool, error)
}

// NewExposed 创建一个已曝光过滤器。
func NewExposed(storeAdapter *StoreAdapter, keyPrefix string, timeWindow int64, bloomDayWindow int) *Exposed {
	var store ExposedStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &Exposed{
		Store:          store,
		KeyPrefix:      keyPrefix,
		TimeWindow:     timeWindow,
		BloomDayWindow: bloomDayWindow,
	}
}

func (f *Exposed) Name() string { return "filter.exposed" }

func (f *Exposed) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Store == nil {
		return false, nil
	}

	keyPrefix := f.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "reader:exposed"
	}

	// 近期曝光列表
	if f.TimeWindow > 0 {
		exposed, err := f.Store.GetExposedItems(ctx, rctx.UserID, keyPrefix, f.TimeWindow)
		if err == nil {
			for _, isbn := range exposed {
				if item.ID == isbn {
					return true, nil
				}
			}
		}
		// 列表读取失败时继续查布隆过滤器
	}

	// 长周期布隆过滤器：可能已曝光就当已曝光处理
	if f.BloomDayWindow > 0 {
		exists, err := f.Store.CheckExposedInBloomFilter(ctx, rctx.UserID, item.ID, keyPrefix, f.BloomDayWindow)
		if err == nil && exists {
			return true, nil
		}
	}
	return false, nil
}
