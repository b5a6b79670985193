package core

import "github.com/rushteam/bookrec/pkg/utils"

// RecommendContext 承载用户/场景/请求级信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Limit 是请求的结果条数 k
	Limit int

	// IncludeRated 显式要求保留用户已评分的书（默认 false：已读书目永不出现在结果中）
	IncludeRated bool

	// User 是强类型用户画像（引擎入口从 MetricsStore 预取）
	User *UserProfile

	// Attrs 是用户静态属性（冷启动分组、地理信号使用）
	Attrs *UserAttributes

	// Ratings 是本次请求的交互快照 map[isbn]rating，入口处读取一次，
	// 各信号共享，保证同一请求内的一致性（含 0 分 implicit 记录）
	Ratings map[string]float64

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	// 例如：新用户、重度用户、价格敏感等
	Labels map[string]utils.Label

	// Params 请求级上下文参数，包含：
	// - 请求参数：latitude, longitude, genre, device_type 等
	// - 实时特征：realtime_ctr 等（建议加 realtime_ 前缀区分）
	Params map[string]any
}

// GetUserProfile 获取用户画像；未预取时返回 nil。
func (rctx *RecommendContext) GetUserProfile() *UserProfile {
	if rctx == nil {
		return nil
	}
	return rctx.User
}

// RatedSet 返回已读书目集合（全部交互，含 implicit），用于排除过滤。
func (rctx *RecommendContext) RatedSet() map[string]bool {
	if rctx == nil || len(rctx.Ratings) == 0 {
		return nil
	}
	set := make(map[string]bool, len(rctx.Ratings))
	for isbn := range rctx.Ratings {
		set[isbn] = true
	}
	return set
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// GetParam 读取请求级参数，不存在时返回零值。
func (rctx *RecommendContext) GetParam(key string) (any, bool) {
	if rctx == nil || rctx.Params == nil {
		return nil, false
	}
	v, ok := rctx.Params[key]
	return v, ok
}
