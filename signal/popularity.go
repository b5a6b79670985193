package signal

import (
	"context"
	"fmt"
	"math"

	"github.com/rushteam/bookrec/core"
)

// Popularity 热度信号：平滑质量分加上评分量的对数项。
// 对数项防止超热门书单靠数量碾压小众高分书。
type Popularity struct {
	Metrics core.MetricsStore
}

var _ Signal = (*Popularity)(nil)

func (s *Popularity) Name() string { return "popularity" }

func (s *Popularity) Score(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (float64, []string, error) {
	m, err := s.Metrics.GetItemMetrics(ctx, item.ID)
	if err != nil {
		return 0, nil, err
	}

	v := m.QualityScore + 0.5*math.Log(math.Max(float64(m.Count), 1))
	var reasons []string
	if m.Count > 0 {
		reasons = []string{fmt.Sprintf("Rated %.1f/10 by %d readers", m.Average, m.Count)}
	}
	return v, reasons, nil
}
