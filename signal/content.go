package signal

import (
	"context"

	"github.com/rushteam/bookrec/content"
	"github.com/rushteam/bookrec/core"
)

// Content 内容匹配信号：书目属性对用户画像的规则打分。
// 书目不在库时跳过该候选；指标缺失时退化为纯属性打分。
type Content struct {
	Catalog core.CatalogStore
	Metrics core.MetricsStore

	// Scorer 可调分值配置，nil 时使用默认分值
	Scorer *content.Scorer
}

var _ Signal = (*Content)(nil)

func (s *Content) Name() string { return "content" }

func (s *Content) Score(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (float64, []string, error) {
	book, err := s.Catalog.GetBook(ctx, item.ID)
	if err != nil {
		return 0, nil, err
	}

	var metrics *core.ItemMetrics
	if s.Metrics != nil {
		metrics, err = s.Metrics.GetItemMetrics(ctx, item.ID)
		if err != nil {
			if !Skippable(err) {
				return 0, nil, err
			}
			metrics = nil
		}
	}

	scorer := s.Scorer
	if scorer == nil {
		scorer = &content.Scorer{}
	}
	v, reasons := scorer.Score(rctx.GetUserProfile(), book, metrics)
	return v, reasons, nil
}
