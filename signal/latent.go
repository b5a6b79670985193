package signal

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/factor"
)

// Latent 潜因子信号：矩阵分解模型的预测分。
// 模型未训练、用户或书目不在训练集内时跳过，不产生可读理由
// （潜因子没有人类可解释的语义，解释职责留给其他信号）。
type Latent struct {
	Model *factor.Model
}

var _ Signal = (*Latent)(nil)

func (s *Latent) Name() string { return "latent" }

func (s *Latent) Score(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (float64, []string, error) {
	v, err := s.Model.Predict(rctx.UserID, item.ID)
	if err != nil {
		return 0, nil, err
	}
	return v, nil, nil
}
