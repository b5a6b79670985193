package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/bookrec/core"
)

// BloomChecker 是布隆过滤器检查接口，具体实现见 ext/store/redis。
type BloomChecker interface {
	// CheckInBloomFilter 检查 isbn 是否在指定 key 的布隆过滤器中。
	// 返回 true 表示可能存在（有误判），false 表示一定不存在
	CheckInBloomFilter(ctx context.Context, key string, isbn string) (bool, error)
}

// StoreAdapter 把 core.Store 适配成各过滤器需要的存储接口。
// 名单一律 JSON 编码，运营侧直接改存储即可生效。
type StoreAdapter struct {
	store core.Store

	// BloomChecker 可选；为 nil 时布隆检查恒为 false
	BloomChecker BloomChecker
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// NewStoreAdapterWithBloom 创建一个带布隆过滤器检查的适配器。
func NewStoreAdapterWithBloom(s core.Store, checker BloomChecker) *StoreAdapter {
	return &StoreAdapter{store: s, BloomChecker: checker}
}

// GetBlacklist 从 Store 读取下架名单（JSON 字符串数组）。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var isbns []string
	if err := json.Unmarshal(data, &isbns); err != nil {
		return nil, err
	}
	return isbns, nil
}

// GetUserBlocks 从 Store 读取用户拉黑列表。
func (a *StoreAdapter) GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]string, error) {
	return a.GetBlacklist(ctx, keyPrefix+":"+userID)
}

// GetExposedItems 从 Store 读取用户曝光历史。
// 兼容两种编码：纯 ISBN 数组，或带时间戳的对象数组（按窗口过滤）。
func (a *StoreAdapter) GetExposedItems(ctx context.Context, userID string, keyPrefix string, timeWindow int64) ([]string, error) {
	data, err := a.store.Get(ctx, keyPrefix+":"+userID)
	if err != nil {
		return nil, err
	}

	var isbns []string
	if err := json.Unmarshal(data, &isbns); err == nil {
		return isbns, nil
	}

	var entries []struct {
		ISBN      string `json:"isbn"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	cutoff := time.Now().Unix() - timeWindow
	isbns = make([]string, 0, len(entries))
	for _, e := range entries {
		if timeWindow > 0 && e.Timestamp < cutoff {
			continue
		}
		isbns = append(isbns, e.ISBN)
	}
	return isbns, nil
}

// CheckExposedInBloomFilter 检查 ISBN 是否在近 dayWindow 天的布隆过滤器中。
// 布隆过滤器按天分片，key 格式 {keyPrefix}:bloom:{userID}:{YYYYMMDD}；
// 任意一天命中即视为已曝光。未配置 BloomChecker 时恒为 false。
func (a *StoreAdapter) CheckExposedInBloomFilter(ctx context.Context, userID string, isbn string, keyPrefix string, dayWindow int) (bool, error) {
	if a.BloomChecker == nil || dayWindow <= 0 {
		return false, nil
	}

	now := time.Now()
	for i := 0; i < dayWindow; i++ {
		date := now.AddDate(0, 0, -i).Format("20060102")
		key := fmt.Sprintf("%s:bloom:%s:%s", keyPrefix, userID, date)

		exists, err := a.BloomChecker.CheckInBloomFilter(ctx, key, isbn)
		if err != nil {
			// 单日检查失败不影响其他天
			continue
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}
