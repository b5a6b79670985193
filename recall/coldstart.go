package recall

import (
	"context"

	"github.com/rushteam/bookrec/coldstart"
	"github.com/rushteam/bookrec/core"
)

// ColdStart 是冷启动兜底召回源：只对交互不足的读者产出同龄群候选，
// 活跃读者直接返回空，避免稀释个性化链路。
type ColdStart struct {
	Recommender *coldstart.Recommender

	// K 返回的候选数（默认 50）
	K int
}

func (r *ColdStart) Name() string { return "recall.coldstart" }

func (r *ColdStart) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Recommender == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	cold, err := r.Recommender.IsCold(ctx, rctx.UserID)
	if err != nil {
		if !core.IsNotFound(err) {
			return nil, err
		}
		cold = true // 没有任何记录的全新读者同样走冷启动
	}
	if !cold {
		return nil, nil
	}

	k := r.K
	if k <= 0 {
		k = 50
	}
	items, err := r.Recommender.Recommend(ctx, rctx.UserID, k)
	if err != nil {
		if core.IsInsufficientData(err) || core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}
