package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// Rated 排除用户已经评过分的书，0 分 implicit 记录同样算已读。
//
// 已读排除是产品不变式，不依赖任何外部存储：交互快照在请求入口
// 读进 rctx.Ratings，这里只做集合剔除。请求显式设置 IncludeRated
// 时整个节点放行（重读榜单之类的场景）。
type Rated struct{}

var _ pipeline.Node = (*Rated)(nil)

func (n *Rated) Name() string        { return "filter.rated" }
func (n *Rated) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *Rated) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.IncludeRated || len(items) == 0 {
		return items, nil
	}
	rated := rctx.RatedSet()
	if len(rated) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil || rated[it.ID] {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}
