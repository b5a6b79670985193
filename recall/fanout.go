package recall

import (
	"context"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并候选书目。
// 支持超时、限流、优先级合并策略。Sources 的声明顺序即优先级顺序
// （索引越小优先级越高），合并结果按该顺序拼接，保证同一份数据快照
// 下输出确定。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // 合并策略：first / union / priority
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	// 每个源写自己的槽位，eg.Wait 之后按声明顺序拼接。
	results := make([][]*core.Item, len(n.Sources))
	errs := make([]error, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)

	// 限流：使用 semaphore 控制并发数
	sem := make(chan struct{}, n.MaxConcurrent)
	if n.MaxConcurrent <= 0 {
		close(sem) // 无限制时直接关闭，避免阻塞
	}

	for i, src := range n.Sources {
		i, src := i, src // per-iteration copies; required pre-Go 1.22 loopvar semantics
		eg.Go(func() error {
			if n.MaxConcurrent > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			// 超时控制
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				// 超时或出错只丢掉这一路召回，不中断其他召回源；
				// 错误在合并阶段写入请求 label，供 explain / 观测使用。
				errs[i] = err
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测
			priority := strconv.Itoa(i)
			for _, it := range items {
				if it == nil {
					continue
				}
				it.PutLabel("recall_source", utils.Label{Value: src.Name(), Source: "recall"})
				it.PutLabel("recall_priority", utils.Label{Value: priority, Source: "recall"})
			}
			results[i] = items
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []*core.Item
	for i, items := range results {
		if errs[i] != nil && rctx != nil {
			rctx.PutLabel("recall_error."+n.Sources[i].Name(),
				utils.Label{Value: errs[i].Error(), Source: "recall"})
		}
		all = append(all, items...)
	}

	// 合并策略
	switch n.MergeStrategy {
	case "priority":
		return n.mergeByPriority(all), nil
	case "union":
		return n.mergeUnion(all), nil
	default: // "first" 或默认
		return n.mergeFirst(all), nil
	}
}

// mergeFirst 按 ISBN 去重，保留第一个出现的（默认策略）。
// 重复条目的 labels 合并进保留条目，召回来源因此可追踪到多路。
func (n *Fanout) mergeFirst(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// mergeUnion 合并所有结果，不去重（用于需要保留所有来源的场景）。
func (n *Fanout) mergeUnion(all []*core.Item) []*core.Item {
	return all
}

// mergeByPriority 按优先级合并：相同 ISBN 时保留优先级更高的（索引更小），
// 占位保持首次出现的位置。优先级单独记账，不回读可能已被合并污染的 label。
func (n *Fanout) mergeByPriority(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	at := make(map[string]int, len(all))   // ISBN → out 下标
	best := make(map[string]int, len(all)) // ISBN → 当前胜出优先级
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		idx, exists := at[it.ID]
		if !exists {
			at[it.ID] = len(out)
			best[it.ID] = labelPriority(it)
			out = append(out, it)
			continue
		}
		old := out[idx]
		if p := labelPriority(it); p < best[it.ID] {
			for k, v := range old.Labels {
				it.PutLabel(k, v)
			}
			out[idx] = it
			best[it.ID] = p
		} else {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
		}
	}
	return out
}

// labelPriority 解析 recall_priority label，缺失或不可解析视为最低优先级。
func labelPriority(it *core.Item) int {
	lbl, ok := it.Labels["recall_priority"]
	if !ok {
		return math.MaxInt
	}
	p, err := strconv.Atoi(lbl.Value)
	if err != nil {
		return math.MaxInt
	}
	return p
}
