package feature

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// Enrich 是特征注入节点：把用户特征、书侧特征、交叉特征合并进
// item.Features，供下游 rank.model 打分。
//
// 书侧特征来源（优先级）：
//  1. Service：特征服务批量获取（feast 等远程特征库）
//  2. Catalog + Metrics：本地仓储就地编码（嵌入的 Extractor）
//  3. item.Features：保持召回/信号阶段已写入的特征
//
// 用户特征同理：Service > UserFeatures 自定义函数 > 本地编码。
// 信号阶段已写入的特征（*_score）永不覆盖。
type Enrich struct {
	Extractor

	// Service 特征服务（可选）；设置后用户/书侧特征优先从这里取
	Service core.FeatureService

	// Catalog、Metrics 本地兜底数据源（可选）
	Catalog core.CatalogStore
	Metrics core.MetricsStore

	// UserFeatures 自定义用户特征提取（可选，Service 未设置时生效）
	UserFeatures func(ctx context.Context, rctx *core.RecommendContext) (map[string]float64, error)

	// 特征前缀，空则用 user_ / item_ / cross_
	UserPrefix  string
	ItemPrefix  string
	CrossPrefix string

	// 交叉特征只对关键特征做笛卡尔积，避免特征爆炸。
	// 默认 KeyUserFeatures = [mean_rating, reader_level]，
	// KeyItemFeatures = [quality_score, popularity_score, price]。
	KeyUserFeatures []string
	KeyItemFeatures []string

	// Processors 注入完成后按序应用于 item.Features（标准化等）
	Processors []Processor
}

var _ pipeline.Node = (*Enrich)(nil)

func (n *Enrich) Name() string        { return "feature.enrich" }
func (n *Enrich) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *Enrich) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	userPrefix := orDefault(n.UserPrefix, "user_")
	itemPrefix := orDefault(n.ItemPrefix, "item_")
	crossPrefix := orDefault(n.CrossPrefix, "cross_")

	userFeatures := n.userFeatures(ctx, rctx)
	itemFeaturesMap := n.batchItemFeatures(ctx, items)

	for _, item := range items {
		if item == nil {
			continue
		}

		itemFeatures := itemFeaturesMap[item.ID]
		if itemFeatures == nil && len(item.Features) > 0 {
			itemFeatures = make(map[string]float64, len(item.Features))
			for k, v := range item.Features {
				itemFeatures[k] = v
			}
		}

		for k, v := range userFeatures {
			item.SetFeature(userPrefix+k, v)
		}

		// 书侧特征不覆盖已有值（信号得分优先），也不重复加前缀
		for k, v := range itemFeatures {
			key := k
			if !strings.HasPrefix(k, itemPrefix) && !strings.HasPrefix(k, userPrefix) && !strings.HasPrefix(k, crossPrefix) {
				key = itemPrefix + k
			}
			if _, exists := item.Features[key]; !exists {
				item.SetFeature(key, v)
			}
		}

		for k, v := range n.crossFeatures(userFeatures, itemFeatures) {
			item.SetFeature(crossPrefix+k, v)
		}

		for _, p := range n.Processors {
			item.Features = p.Process(item.Features)
		}
	}

	return items, nil
}

func (n *Enrich) userFeatures(ctx context.Context, rctx *core.RecommendContext) map[string]float64 {
	if n.Service != nil && rctx != nil && rctx.UserID != "" {
		features, err := n.Service.GetUserFeatures(ctx, rctx.UserID)
		if err == nil && len(features) > 0 {
			return features
		}
	}

	if n.UserFeatures != nil {
		features, err := n.UserFeatures(ctx, rctx)
		if err == nil {
			return features
		}
	}

	if rctx == nil {
		return map[string]float64{}
	}
	extractor := &ContextExtractor{Extractor: n.Extractor, IncludeParams: true}
	features, _ := extractor.Extract(ctx, rctx)
	return features
}

// batchItemFeatures 按候选集批量取书侧特征；取不到的书留给 item.Features 兜底。
func (n *Enrich) batchItemFeatures(ctx context.Context, items []*core.Item) map[string]map[string]float64 {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item != nil {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if n.Service != nil {
		features, err := n.Service.BatchGetItemFeatures(ctx, ids)
		if err == nil && len(features) > 0 {
			return features
		}
	}

	if n.Catalog == nil && n.Metrics == nil {
		return nil
	}

	result := make(map[string]map[string]float64, len(ids))
	for _, isbn := range ids {
		var book *core.Book
		var metrics *core.ItemMetrics
		if n.Catalog != nil {
			book, _ = n.Catalog.GetBook(ctx, isbn)
		}
		if n.Metrics != nil {
			metrics, _ = n.Metrics.GetItemMetrics(ctx, isbn)
		}
		if book == nil && metrics == nil {
			continue
		}
		result[isbn] = n.ItemFeatures(book, metrics)
	}
	return result
}

func (n *Enrich) crossFeatures(userFeatures, itemFeatures map[string]float64) map[string]float64 {
	keyUser := n.KeyUserFeatures
	if len(keyUser) == 0 {
		keyUser = []string{"mean_rating", "reader_level"}
	}
	keyItem := n.KeyItemFeatures
	if len(keyItem) == 0 {
		keyItem = []string{"quality_score", "popularity_score", "price"}
	}

	cross := make(map[string]float64)
	for _, uk := range keyUser {
		uv, ok := userFeatures[uk]
		if !ok {
			continue
		}
		for _, ik := range keyItem {
			iv, ok := itemFeatures[ik]
			if !ok {
				continue
			}
			cross[fmt.Sprintf("%s_x_%s", uk, ik)] = uv * iv
		}
	}
	return cross
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
