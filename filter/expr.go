package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式筛候选：表达式求值为 true 的候选被过滤掉。
//
// 典型用法是运营侧临时规则，不用改代码就能下掉一类候选：
//
//	f, _ := filter.NewExprFilter(`label.recall_source == "popular" && item.score < 0.2`)
type ExprFilter struct {
	expr *dsl.Expr
}

// NewExprFilter 编译表达式并构造过滤器；表达式非法返回 INVALID_CONFIG。
func NewExprFilter(src string) (*ExprFilter, error) {
	expr, err := dsl.Compile(src)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{expr: expr}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	return f.expr.Match(item, rctx)
}
