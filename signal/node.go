package signal

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// Node 把一组 Signal 套上 pipeline.Node 形态，逐信号为候选集打分。
//
// 每个信号的分值落在 item.Features["<name>_score"]；被跳过的信号不写
// feature（缺席即零贡献，rank 阶段读不到时按 0 处理），这样 Features
// 同时记录了“本次哪些信号实际生效”。
type Node struct {
	Signals []Signal
}

var _ pipeline.Node = (*Node)(nil)

func NewNode(signals ...Signal) *Node {
	return &Node{Signals: signals}
}

func (n *Node) Name() string        { return "signal" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *Node) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	for _, sig := range n.Signals {
		if err := n.apply(ctx, rctx, items, sig); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (n *Node) apply(ctx context.Context, rctx *core.RecommendContext, items []*core.Item, sig Signal) error {
	feature := FeatureKey(sig.Name())

	// 批量路径：请求级状态只算一次；整体缺数据时整个信号跳过
	if b, ok := sig.(Batcher); ok {
		results, err := b.ScoreAll(ctx, rctx, items)
		if err != nil {
			if Skippable(err) {
				return nil
			}
			return err
		}
		for i, it := range items {
			if i >= len(results) {
				break
			}
			it.SetFeature(feature, results[i].Value)
			putReasons(it, sig.Name(), results[i].Reasons)
		}
		return nil
	}

	// 逐条路径：单条缺数据只跳过该候选
	for _, it := range items {
		v, reasons, err := sig.Score(ctx, rctx, it)
		if err != nil {
			if Skippable(err) {
				continue
			}
			return err
		}
		it.SetFeature(feature, v)
		putReasons(it, sig.Name(), reasons)
	}
	return nil
}

// FeatureKey 返回信号分值在 item.Features 中的键名。
func FeatureKey(name string) string {
	return name + "_score"
}

func putReasons(it *core.Item, source string, reasons []string) {
	for _, r := range reasons {
		it.PutReason(source, r)
	}
}
