// Package rerank 在排序完成后调整候选列表：多样性限流与截断。
package rerank

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// Diversity 按第一作者限流的多样性 ReRank：同一作者最多保留 MaxPerAuthor 本。
//
// 不重排序：按传入顺序（即分数顺序）单次扫描，超配额的候选直接跳过，
// 后面分数更低但作者不同的书自然补位。
//
// 作者来源优先级：
//   - label["author"].Value（召回/信号阶段写入时免查目录）
//   - Catalog.GetBook 的第一作者
//
// 两边都拿不到作者的候选不参与限流。
type Diversity struct {
	Catalog core.CatalogStore

	// MaxPerAuthor 同一作者的保留上限，默认 2
	MaxPerAuthor int

	// LabelKey 作者 Label 的 key，默认 "author"
	LabelKey string
}

const defaultMaxPerAuthor = 2

var _ pipeline.Node = (*Diversity)(nil)

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	maxPer := n.MaxPerAuthor
	if maxPer <= 0 {
		maxPer = defaultMaxPerAuthor
	}
	key := n.LabelKey
	if key == "" {
		key = "author"
	}

	counts := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		author, err := n.authorOf(ctx, it, key)
		if err != nil {
			return nil, err
		}
		if author == "" {
			out = append(out, it)
			continue
		}
		if counts[author] >= maxPer {
			continue
		}
		counts[author]++
		out = append(out, it)
	}
	return out, nil
}

func (n *Diversity) authorOf(ctx context.Context, it *core.Item, key string) (string, error) {
	if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
		return lbl.Value, nil
	}
	if n.Catalog == nil {
		return "", nil
	}
	book, err := n.Catalog.GetBook(ctx, it.ID)
	if err != nil {
		if core.IsNotFound(err) || core.IsStoreNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return book.PrimaryAuthor(), nil
}
