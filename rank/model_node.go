package rank

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/model"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// ModelNode 用外部模型打分的排序 Node（本地线性模型或远程打分服务）。
// 模型实现了 BatchModel 时走批量接口。
//
// 写入 labels：rank_model；更新 item.Score 并重新排序。
type ModelNode struct {
	Model model.RankModel
}

var _ pipeline.Node = (*ModelNode)(nil)

func (n *ModelNode) Name() string        { return "rank.model" }
func (n *ModelNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ModelNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Model == nil || len(items) == 0 {
		return items, nil
	}

	valid := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			valid = append(valid, it)
		}
	}
	if len(valid) == 0 {
		return items, nil
	}

	if batch, ok := n.Model.(model.BatchModel); ok {
		featuresList := make([]map[string]float64, len(valid))
		for i, it := range valid {
			featuresList[i] = it.Features
		}
		scores, err := batch.PredictBatch(featuresList)
		if err != nil {
			return nil, err
		}
		for i, it := range valid {
			it.Score = scores[i]
			it.PutLabel("rank_model", utils.Label{Value: n.Model.Name(), Source: "rank"})
		}
	} else {
		for _, it := range valid {
			score, err := n.Model.Predict(it.Features)
			if err != nil {
				return nil, err
			}
			it.Score = score
			it.PutLabel("rank_model", utils.Label{Value: n.Model.Name(), Source: "rank"})
		}
	}

	SortItems(items)
	return items, nil
}
