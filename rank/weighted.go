// Package rank 把 signal 阶段写入的分信号得分组合成最终排序分。
package rank

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// Weighted 是加权线性组合排序 Node。
//
// 组合流程：
//  1. 权重校验：出现负权重或全零权重返回 INVALID_CONFIG，直接终止请求
//  2. 权重归一化：除以权重和，不同配置之间分数可比
//  3. 特征归一化：每个特征除以候选集内的最大值，消除量纲差异
//     （协同分的量级可能是几十，内容分只有个位数）
//  4. 线性组合：score = Σ weight_i × feature_i
//  5. 排序：分数降序，同分按 ISBN 升序
//
// 缺失的特征按 0 参与组合：信号被跳过的候选不加分也不惩罚。
type Weighted struct {
	// Weights 是特征名到权重的映射，例如 {"content_score": 0.25}
	Weights map[string]float64
}

var _ pipeline.Node = (*Weighted)(nil)

func (n *Weighted) Name() string        { return "rank.weighted" }
func (n *Weighted) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *Weighted) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	weights, err := normalizeWeights(n.Weights)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	maxima := featureMaxima(weights, items)

	for _, it := range items {
		if it == nil {
			continue
		}
		var score float64
		for key, w := range weights {
			peak := maxima[key]
			if peak <= 0 {
				continue
			}
			score += w * (it.GetFeature(key) / peak)
		}
		it.Score = score
		it.PutLabel("rank_model", utils.Label{Value: "weighted", Source: "rank"})
	}

	SortItems(items)
	return items, nil
}

// normalizeWeights 校验权重并归一到和为 1。
func normalizeWeights(weights map[string]float64) (map[string]float64, error) {
	if len(weights) == 0 {
		return nil, core.NewConfigurationError("rank", "no weights configured")
	}
	var sum float64
	for key, w := range weights {
		if w < 0 {
			return nil, core.NewConfigurationError("rank", fmt.Sprintf("negative weight for %q", key))
		}
		sum += w
	}
	if sum == 0 {
		return nil, core.NewConfigurationError("rank", "all weights are zero")
	}
	out := make(map[string]float64, len(weights))
	for key, w := range weights {
		out[key] = w / sum
	}
	return out, nil
}

// featureMaxima 统计每个参与组合的特征在候选集内的最大值。
func featureMaxima(weights map[string]float64, items []*core.Item) map[string]float64 {
	maxima := make(map[string]float64, len(weights))
	for key := range weights {
		for _, it := range items {
			if it == nil {
				continue
			}
			if v := it.GetFeature(key); v > maxima[key] {
				maxima[key] = v
			}
		}
	}
	return maxima
}

// SortItems 按最终分降序排序，同分按 ISBN 升序，保证相同输入产出相同顺序。
// nil 项沉底。
func SortItems(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}
