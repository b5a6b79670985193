// Package hybrid 把召回、过滤、信号打分、排序、重排节点装配成一条
// 完整的图书推荐链路，是本库的编排入口。
//
// 链路形态（节点抽象见 pipeline 包）：
//
//	recall.Fanout → filter.Rated → 业务过滤 → signal.Node → rank.Weighted → rerank.Diversity → rerank.TopN
//
// 引擎只读仓储快照，自身无状态：同一份数据快照与同一组权重下输出
// 确定（总分降序，同分 ISBN 升序）。交互不足的读者先走同龄群冷启动，
// 共识不足时落回个性化链路；个性化链路空产出时再反向兜底一次。
package hybrid

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/bookrec/coldstart"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/factor"
	"github.com/rushteam/bookrec/filter"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/rank"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/rerank"
	"github.com/rushteam/bookrec/signal"
	"github.com/rushteam/bookrec/similarity"
	"github.com/rushteam/bookrec/trending"
)

const defaultColdThreshold = 20

// Engine 是混合推荐引擎。仓储字段决定可用的信号与召回源：缺哪个，
// 对应那一路就静默缺席，引擎不会因为部分依赖未接入而报错。
type Engine struct {
	Ratings core.RatingStore
	Catalog core.CatalogStore
	Metrics core.MetricsStore
	Users   core.UserStore

	// Finder 为空时基于 Ratings 用默认阈值自建
	Finder *similarity.Finder
	// Factor 可选；未拟合时隐因子信号与召回静默跳过
	Factor *factor.Model
	// ColdStart 为空且 Users/Ratings/Metrics 齐备时自建
	ColdStart *coldstart.Recommender
	// Trend 可选趋势召回
	Trend *trending.Detector
	// Store 可选热门榜来源（popular:books）
	Store core.Store

	// Sources 覆盖默认召回装配；为空时按已接入的依赖装配
	// genre → neighbors → latent → trending → popular
	Sources []recall.Source
	// Filters 是业务过滤规则（黑名单 / CEL 表达式等），排在
	// 已读排除之后执行
	Filters []filter.Filter
	// Weights 是 signal 名 → 权重；为空时对已装配信号等权。
	// 负权重或全零在排序阶段报 INVALID_CONFIG
	Weights map[string]float64

	// MaxPerAuthor 同一主作者的结果上限，0 用默认值 2，负数关闭约束
	MaxPerAuthor int
	// ColdThreshold 交互数低于该值的读者先走冷启动（默认 20）
	ColdThreshold int
	// RecallTimeout 单路召回超时（0 不限）
	RecallTimeout time.Duration
	// MaxConcurrent 召回并发上限（0 不限）
	MaxConcurrent int
	// Seed 冷启动采样种子（0 用默认种子）
	Seed int64
}

// Recommend 为读者产出 TopK 推荐。已评过的书不会出现在结果里。
func (e *Engine) Recommend(ctx context.Context, userID string, k int) ([]*core.Item, error) {
	return e.RecommendFor(ctx, &core.RecommendContext{
		UserID: userID,
		Scene:  "hybrid",
		Limit:  k,
	})
}

// RecommendFor 在调用方构造的请求上下文上运行完整链路，用于
// IncludeRated、请求参数（如 genre）这类逃生门。rctx 的画像、
// 属性与评分快照缺失时由引擎预载。
func (e *Engine) RecommendFor(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" {
		return nil, core.NewDomainError(core.ModuleHybrid, core.ErrorCodeInvalidInput,
			"hybrid: empty user id")
	}
	if rctx.Limit <= 0 {
		return nil, core.NewConfigurationError(core.ModuleHybrid,
			fmt.Sprintf("hybrid: limit must be positive, got %d", rctx.Limit))
	}
	if err := e.prime(ctx, rctx); err != nil {
		return nil, err
	}

	cold := len(rctx.Ratings) < e.threshold()
	if cold {
		items, err := e.coldStart(ctx, rctx)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return items, nil
		}
		// 同龄群没有共识也不算失败，落回个性化链路
	}

	items, err := e.run(ctx, rctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 && !cold {
		// 个性化链路空产出（邻居/隐因子均无结果）时兜底一次
		return e.coldStart(ctx, rctx)
	}
	return items, nil
}

// prime 预载请求上下文：评分快照、行为画像、人口学属性。
// 画像与属性缺失是常态（新读者），不算错误。
func (e *Engine) prime(ctx context.Context, rctx *core.RecommendContext) error {
	if rctx.Ratings == nil && e.Ratings != nil {
		ratings, err := e.Ratings.GetUserRatings(ctx, rctx.UserID)
		if err != nil && !core.IsNotFound(err) {
			return fmt.Errorf("hybrid: load ratings for %q: %w", rctx.UserID, err)
		}
		rctx.Ratings = ratings
	}
	if rctx.User == nil && e.Metrics != nil {
		profile, err := e.Metrics.GetUserProfile(ctx, rctx.UserID)
		switch {
		case err == nil:
			rctx.User = profile
		case !core.IsNotFound(err):
			return fmt.Errorf("hybrid: load profile for %q: %w", rctx.UserID, err)
		}
	}
	if rctx.Attrs == nil && e.Users != nil {
		attrs, err := e.Users.GetUserAttributes(ctx, rctx.UserID)
		switch {
		case err == nil:
			rctx.Attrs = attrs
		case !core.IsNotFound(err):
			return fmt.Errorf("hybrid: load attributes for %q: %w", rctx.UserID, err)
		}
	}
	return nil
}

// run 装配并执行个性化链路。
func (e *Engine) run(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	weights := e.weights()

	nodes := []pipeline.Node{
		&recall.Fanout{
			Sources:       e.sources(),
			Dedup:         true,
			Timeout:       e.RecallTimeout,
			MaxConcurrent: e.MaxConcurrent,
		},
		&filter.Rated{},
	}
	if len(e.Filters) > 0 {
		nodes = append(nodes, &filter.Node{Filters: e.Filters})
	}
	nodes = append(nodes,
		signal.NewNode(e.signals(weights)...),
		&rank.Weighted{Weights: featureWeights(weights)},
	)
	if e.MaxPerAuthor >= 0 {
		nodes = append(nodes, &rerank.Diversity{Catalog: e.Catalog, MaxPerAuthor: e.MaxPerAuthor})
	}
	nodes = append(nodes, &rerank.TopN{})

	p := &pipeline.Pipeline{Nodes: nodes}
	return p.Run(ctx, rctx, nil)
}

// coldStart 执行同龄群兜底。NOT_FOUND / INSUFFICIENT_DATA 视为
// "这条路没有产出"，返回空列表而非错误。
func (e *Engine) coldStart(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	rec := e.ColdStart
	if rec == nil {
		if e.Users == nil || e.Ratings == nil || e.Metrics == nil {
			return nil, nil
		}
		rec = &coldstart.Recommender{
			Users:     e.Users,
			Ratings:   e.Ratings,
			Metrics:   e.Metrics,
			Threshold: e.threshold(),
			Seed:      e.Seed,
		}
	}
	items, err := rec.Recommend(ctx, rctx.UserID, rctx.Limit)
	if err != nil {
		if core.IsNotFound(err) || core.IsInsufficientData(err) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

// sources 按接入的依赖装配默认召回源，声明顺序即优先级。
func (e *Engine) sources() []recall.Source {
	if len(e.Sources) > 0 {
		return e.Sources
	}
	var out []recall.Source
	if e.Catalog != nil {
		out = append(out, &recall.Genre{Catalog: e.Catalog, Profiles: e.Metrics})
	}
	if f := e.finder(); f != nil {
		out = append(out, &recall.Neighbors{Finder: f, Ratings: e.Ratings})
	}
	if e.Factor != nil {
		out = append(out, &recall.Latent{Model: e.Factor})
	}
	if e.Trend != nil {
		out = append(out, &recall.Trending{Detector: e.Trend})
	}
	if e.Store != nil {
		out = append(out, &recall.Popular{Store: e.Store})
	}
	return out
}

// signals 装配参与打分的信号：权重为零或依赖缺失的信号不执行，
// 省掉无贡献信号的仓储扫描。geographic 只在显式配置权重时参与。
func (e *Engine) signals(weights map[string]float64) []signal.Signal {
	var out []signal.Signal
	if weights["content"] > 0 && e.Catalog != nil {
		out = append(out, &signal.Content{Catalog: e.Catalog, Metrics: e.Metrics})
	}
	if weights["collaborative"] > 0 && e.Ratings != nil {
		if f := e.finder(); f != nil {
			out = append(out, &signal.Collaborative{Finder: f, Ratings: e.Ratings})
		}
	}
	if weights["latent"] > 0 && e.Factor != nil {
		out = append(out, &signal.Latent{Model: e.Factor})
	}
	if weights["popularity"] > 0 && e.Metrics != nil {
		out = append(out, &signal.Popularity{Metrics: e.Metrics})
	}
	if weights["geographic"] > 0 && e.Users != nil && e.Ratings != nil {
		out = append(out, &signal.Geographic{Users: e.Users, Ratings: e.Ratings})
	}
	return out
}

// weights 返回生效的权重表：调用方没配时对可用信号等权。
func (e *Engine) weights() map[string]float64 {
	if len(e.Weights) > 0 {
		return e.Weights
	}
	w := make(map[string]float64, 4)
	if e.Catalog != nil {
		w["content"] = 1
	}
	if e.finder() != nil {
		w["collaborative"] = 1
	}
	if e.Factor != nil {
		w["latent"] = 1
	}
	if e.Metrics != nil {
		w["popularity"] = 1
	}
	return w
}

func (e *Engine) finder() *similarity.Finder {
	if e.Finder != nil {
		return e.Finder
	}
	if e.Ratings == nil {
		return nil
	}
	return &similarity.Finder{Ratings: e.Ratings}
}

func (e *Engine) threshold() int {
	if e.ColdThreshold > 0 {
		return e.ColdThreshold
	}
	return defaultColdThreshold
}

// featureWeights 把 signal 名权重翻译成排序阶段的 feature 键权重。
func featureWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for name, w := range weights {
		out[signal.FeatureKey(name)] = w
	}
	return out
}
