package recall

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/conv"
	"github.com/rushteam/bookrec/trending"
)

// Trending 召回近期动量上升的书，题材可通过请求参数 "genre" 收窄。
type Trending struct {
	Detector *trending.Detector

	// Limit 返回的候选数（默认 50）
	Limit int
}

func (r *Trending) Name() string { return "recall.trending" }

func (r *Trending) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Detector == nil {
		return nil, nil
	}

	limit := r.Limit
	if limit <= 0 {
		limit = 50
	}

	genre := ""
	if v, ok := rctx.GetParam("genre"); ok {
		if g, ok := conv.ToString(v); ok {
			genre = g
		}
	}

	items, err := r.Detector.TrendingBooks(ctx, genre, limit)
	if err != nil {
		if core.IsInsufficientData(err) || core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}
