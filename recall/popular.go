package recall

import (
	"context"
	"encoding/json"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// Popular 是热门书召回源，支持从 Store 读取榜单。
// - 如果 Store 实现了 KeyValueStore，优先使用 ZRange（有序集合，分数由画像更新侧维护）
// - 否则从普通 key 读取 JSON 数组
// - Store 不可用时退回内存中的 ISBNs
// Popular 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popular struct {
	Store core.Store
	Key   string   // 存储 key，默认 "popular:books"
	ISBNs []string // fallback 内存榜单

	// Limit 榜单长度（默认 100）
	Limit int
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Popular) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 100
	}
	key := r.Key
	if key == "" {
		key = "popular:books"
	}

	var isbns []string

	// 优先从 Store 读取（支持 ZRange 或普通 Get）
	if r.Store != nil {
		if kv, ok := r.Store.(core.KeyValueStore); ok {
			members, err := kv.ZRange(ctx, key, 0, int64(limit-1))
			if err == nil && len(members) > 0 {
				isbns = members
			}
		} else {
			data, err := r.Store.Get(ctx, key)
			if err == nil {
				var parsed []string
				if json.Unmarshal(data, &parsed) == nil {
					isbns = parsed
				}
			}
		}
	}

	// Fallback：使用内存榜单
	if len(isbns) == 0 {
		isbns = r.ISBNs
	}
	if len(isbns) > limit {
		isbns = isbns[:limit]
	}

	out := make([]*core.Item, 0, len(isbns))
	for _, isbn := range isbns {
		if isbn == "" {
			continue
		}
		out = append(out, core.NewItem(isbn))
	}
	return out, nil
}
