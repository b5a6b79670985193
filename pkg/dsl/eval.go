// Package dsl 提供基于 CEL (Common Expression Language) 的候选表达式：
// 编译一次，逐候选求值，线程安全。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/bookrec/core"
)

var (
	// celEnv 是全局 CEL 环境，编译期复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func env() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Expr 是编译好的布尔表达式。
//
// 可访问的变量：
//   - item：候选书，item.id / item.score / item.features.xxx / item.meta.xxx
//   - label：候选的解释标签，label.recall_source 直接取 Value
//   - rctx：请求上下文，rctx.user_id / rctx.scene / rctx.limit /
//     rctx.reader_level / rctx.critic_profile / rctx.params.xxx
//
// 示例：
//   - `label.recall_source == "trending"`
//   - `item.features.popularity_score > 5.0 && rctx.reader_level == "casual_reader"`
//   - `item.score >= 0.5`
//
// CEL 访问不存在的 key 会报错，存在性判断写 `label.key != null`。
type Expr struct {
	src string
	prg cel.Program
}

// Compile 编译表达式。语法或类型错误返回 INVALID_CONFIG。
func Compile(src string) (*Expr, error) {
	if src == "" {
		return nil, core.NewConfigurationError("dsl", "empty expression")
	}
	e, err := env()
	if err != nil {
		return nil, err
	}
	ast, issues := e.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, core.NewConfigurationError("dsl", fmt.Sprintf("compile %q: %v", src, issues.Err()))
	}
	prg, err := e.Program(ast)
	if err != nil {
		return nil, core.NewConfigurationError("dsl", fmt.Sprintf("program %q: %v", src, err))
	}
	return &Expr{src: src, prg: prg}, nil
}

// Source 返回原始表达式文本。
func (e *Expr) Source() string { return e.src }

// Match 对单个候选求值，返回表达式的布尔结果。
func (e *Expr) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if item == nil {
		return false, nil
	}
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", e.src, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return boolean, got %T", e.src, out.Value())
	}
	return b, nil
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	labelValues := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = map[string]any{"value": v.Value, "source": v.Source}
		labelValues[k] = v.Value
	}

	itemIn := map[string]any{
		"id":       item.ID,
		"score":    item.Score,
		"features": item.Features,
		"meta":     item.Meta,
		"labels":   labels,
	}

	rctxIn := map[string]any{
		"user_id":        "",
		"scene":          "",
		"limit":          0,
		"include_rated":  false,
		"reader_level":   "",
		"critic_profile": "",
		"params":         map[string]any{},
	}
	if rctx != nil {
		rctxIn["user_id"] = rctx.UserID
		rctxIn["scene"] = rctx.Scene
		rctxIn["limit"] = rctx.Limit
		rctxIn["include_rated"] = rctx.IncludeRated
		if rctx.Params != nil {
			rctxIn["params"] = rctx.Params
		}
		if p := rctx.User; p != nil {
			rctxIn["reader_level"] = p.ReaderLevel
			rctxIn["critic_profile"] = p.CriticProfile
		}
	}

	return map[string]any{"item": itemIn, "label": labelValues, "rctx": rctxIn}
}
