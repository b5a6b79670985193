package rerank

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// TopN 截取前 N 个候选，放在多样性限流之后作为链路的最后一个节点。
//
// N 未配置（<= 0）时取请求的 rctx.Limit，两边都没有则不截断。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.Weighted{...},       // 排序
//	        &rerank.Diversity{...},    // 作者限流
//	        &rerank.TopN{},            // 按请求的 k 截断
//	    },
//	}
type TopN struct {
	// N 要保留的候选数量，<= 0 时回退到 rctx.Limit
	N int
}

var _ pipeline.Node = (*TopN)(nil)

func (n *TopN) Name() string        { return "rerank.topn" }
func (n *TopN) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopN) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.Limit
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
