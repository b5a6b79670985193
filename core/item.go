package core

import "github.com/rushteam/bookrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选书、分数、分信号得分、解释标签。
// ID 为 ISBN；Features 存放各信号的分项得分（content_score、collab_score 等），
// Labels 用于解释与策略驱动，Score 用于最终排序决策。
type Item struct {
	ID       string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// PutReason 追加一条推荐理由（解释信息统一走 Labels，key 固定为 "reason"）。
func (it *Item) PutReason(source, text string) {
	it.PutLabel("reason", utils.Label{Value: text, Source: source})
}

// GetFeature 读取分项得分，不存在时返回 0。
func (it *Item) GetFeature(key string) float64 {
	if it.Features == nil {
		return 0
	}
	return it.Features[key]
}

// SetFeature 写入分项得分。
func (it *Item) SetFeature(key string, v float64) {
	if it.Features == nil {
		it.Features = make(map[string]float64)
	}
	it.Features[key] = v
}
