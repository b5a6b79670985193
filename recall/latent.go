package recall

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/factor"
)

// Latent 用矩阵分解模型召回：对全部已拟合书目做因子点积打分取 TopK。
// 模型未拟合、读者不在拟合矩阵中都视为这一路没有产出，交给其他源兜底。
type Latent struct {
	Model *factor.Model

	// TopK 返回的候选数（默认 100）
	TopK int
}

func (r *Latent) Name() string { return "recall.latent" }

func (r *Latent) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Model == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	k := r.TopK
	if k <= 0 {
		k = 100
	}

	exclude := rctx.RatedSet()
	if rctx.IncludeRated {
		exclude = nil
	}
	scored, err := r.Model.Recommend(rctx.UserID, nil, k, exclude)
	if err != nil {
		if core.IsModelNotFitted(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]*core.Item, 0, len(scored))
	for _, s := range scored {
		it := core.NewItem(s.ISBN)
		it.Score = s.Score
		out = append(out, it)
	}
	return out, nil
}
