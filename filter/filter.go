// Package filter 在召回之后、打分之前收敛候选集：
// 已读排除（产品不变式）、黑名单、拉黑、已曝光、表达式筛选。
package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Filter 判断一个候选是否应该被过滤掉。
// 返回 true 表示过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断候选是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}
