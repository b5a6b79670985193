// Package signal 定义混合推荐的评分信号抽象与内置实现。
//
// 一个 Signal 对单个候选书输出 (分值, 可读理由)，由 signal.Node 批量驱动：
// 分值写入 item.Features["<name>_score"] 供 rank 阶段加权合成，
// 理由写入 item.Labels["reason"] 供 explain 阶段与调用方消费。
//
// 内置信号：
//   - Content        内容匹配（类型/作者/价格/质量规则分）
//   - Collaborative  邻居加权（相关系数 × 邻居评分）
//   - Latent         潜因子模型预测分
//   - Popularity     质量分 + 热度对数项
//   - Geographic     同地域读者偏好
//
// 信号缺数据属于常态而非故障：返回 Skippable 判定为真的错误时，
// 该信号对当次请求记零贡献，链路继续。
package signal

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// Signal 对单个候选书打分。
// 返回的 reasons 是面向终端用户的解释片段，可为空。
type Signal interface {
	Name() string
	Score(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (float64, []string, error)
}

// Result 是批量打分的单项结果，与输入 items 下标对齐。
type Result struct {
	Value   float64
	Reasons []string
}

// Batcher 是 Signal 的批量升级接口：请求级状态（邻居集合、地域同伴）
// 只需计算一次时实现它，Node 优先走批量路径。
type Batcher interface {
	ScoreAll(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]Result, error)
}

// Skippable 判定错误是否属于“缺数据跳过”而非致命故障。
// 数据不足、模型未训练、对象不存在都按跳过处理。
func Skippable(err error) bool {
	if err == nil {
		return false
	}
	return core.IsInsufficientData(err) ||
		core.IsModelNotFitted(err) ||
		core.IsNotFound(err) ||
		core.IsStoreNotFound(err)
}
