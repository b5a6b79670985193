// Package builders 注册内置 Node 的配置构建器。
//
// 配置驱动只覆盖不依赖活对象的 Node：热门召回、加权排序、本地/远程
// 模型、过滤器、重排、特征注入。需要 CatalogStore、MetricsStore 等
// 活依赖的召回源（genre / neighbors / latent / trending / coldstart）
// 在代码里构造后塞进 Pipeline，不走配置。
package builders

import (
	"fmt"
	"time"

	"github.com/rushteam/bookrec/config"
	"github.com/rushteam/bookrec/feature"
	"github.com/rushteam/bookrec/filter"
	"github.com/rushteam/bookrec/model"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/conv"
	"github.com/rushteam/bookrec/rank"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/rerank"
)

func init() {
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("recall.popular", BuildPopularNode)
	config.Register("rank.weighted", BuildWeightedNode)
	config.Register("rank.model", BuildModelNode)
	config.Register("rank.remote", BuildRemoteNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("filter", BuildFilterNode)
	config.Register("filter.rated", BuildRatedNode)
	config.Register("feature.enrich", BuildEnrichNode)
}

func BuildFanoutNode(cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		sourceType := conv.ConfigGet(sourceMap, "type", "")
		switch sourceType {
		case "popular":
			sources = append(sources, buildPopularSource(sourceMap))
		case "genre", "neighbors", "latent", "trending", "coldstart":
			return nil, fmt.Errorf("source %q needs live stores, construct it in code (config supports: popular)", sourceType)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MergeStrategy: conv.ConfigGet(cfg, "merge_strategy", ""),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	return fanout, nil
}

func BuildPopularNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return buildPopularSource(cfg), nil
}

func buildPopularSource(cfg map[string]interface{}) *recall.Popular {
	isbns := conv.SliceAnyToString(cfg["isbns"])
	if isbns == nil {
		isbns = []string{}
	}
	return &recall.Popular{
		Key:   conv.ConfigGet(cfg, "key", ""),
		ISBNs: isbns,
		Limit: int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}
}

func BuildWeightedNode(cfg map[string]interface{}) (pipeline.Node, error) {
	weightsMap, ok := cfg["weights"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("weights not found")
	}
	return &rank.Weighted{Weights: conv.MapToFloat64(weightsMap)}, nil
}

// BuildModelNode 构建本地线性模型排序节点。
// 权重来源二选一："path" 指向离线拟合产物（JSON），或 "weights"+"bias" 内联。
func BuildModelNode(cfg map[string]interface{}) (pipeline.Node, error) {
	if path := conv.ConfigGet(cfg, "path", ""); path != "" {
		m, err := model.LoadLinearModel(path)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", path, err)
		}
		return &rank.ModelNode{Model: m}, nil
	}
	weightsMap, ok := cfg["weights"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("weights or path not found")
	}
	m := &model.LinearModel{
		Bias:    conv.ConfigGetFloat64(cfg, "bias", 0.0),
		Weights: conv.MapToFloat64(weightsMap),
	}
	return &rank.ModelNode{Model: m}, nil
}

func BuildRemoteNode(cfg map[string]interface{}) (pipeline.Node, error) {
	endpoint := conv.ConfigGet(cfg, "endpoint", "")
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint not found")
	}
	timeout := 5 * time.Second
	if sec := conv.ConfigGetInt64(cfg, "timeout", 5); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}
	name := conv.ConfigGet(cfg, "name", "remote")
	if name == "" {
		name = "remote"
	}
	return &rank.ModelNode{Model: model.NewRemoteModel(name, endpoint, timeout)}, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	labelKey := conv.ConfigGet(cfg, "label_key", "author")
	if labelKey == "" {
		labelKey = "author"
	}
	return &rerank.Diversity{
		MaxPerAuthor: int(conv.ConfigGetInt64(cfg, "max_per_author", 0)),
		LabelKey:     labelKey,
	}, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopN{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func BuildRatedNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &filter.Rated{}, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "blacklist":
			isbns := conv.SliceAnyToString(filterMap["isbns"])
			if isbns == nil {
				isbns = []string{}
			}
			key := conv.ConfigGet(filterMap, "key", "")
			filters = append(filters, filter.NewBlacklist(isbns, nil, key))
		case "user_block":
			keyPrefix := conv.ConfigGet(filterMap, "key_prefix", "")
			filters = append(filters, filter.NewUserBlock(nil, keyPrefix))
		case "exposed":
			keyPrefix := conv.ConfigGet(filterMap, "key_prefix", "")
			timeWindow := conv.ConfigGetInt64(filterMap, "time_window", 0)
			bloomDayWindow := int(conv.ConfigGetInt64(filterMap, "bloom_day_window", 0))
			filters = append(filters, filter.NewExposed(nil, keyPrefix, timeWindow, bloomDayWindow))
		case "expr":
			src := conv.ConfigGet(filterMap, "expr", "")
			f, err := filter.NewExprFilter(src)
			if err != nil {
				return nil, fmt.Errorf("compile expr filter: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.Node{Filters: filters}, nil
}

func BuildEnrichNode(cfg map[string]interface{}) (pipeline.Node, error) {
	node := &feature.Enrich{
		UserPrefix:      conv.ConfigGet(cfg, "user_prefix", ""),
		ItemPrefix:      conv.ConfigGet(cfg, "item_prefix", ""),
		CrossPrefix:     conv.ConfigGet(cfg, "cross_prefix", ""),
		KeyUserFeatures: conv.SliceAnyToString(cfg["key_user_features"]),
		KeyItemFeatures: conv.SliceAnyToString(cfg["key_item_features"]),
	}
	if keys := conv.SliceAnyToString(cfg["log_features"]); len(keys) > 0 {
		node.Processors = append(node.Processors, feature.NewLogNormalizer(keys...))
	}
	return node, nil
}
