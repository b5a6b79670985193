package signal

import (
	"context"
	"fmt"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/similarity"
)

// Collaborative 邻居加权信号：候选书得分为“给它打过高分的邻居”的
// 相关系数 × 评分之和。邻居发现一次，整个候选集共享（Batcher 路径）。
//
// 目标用户没有邻居（评分太少或口味孤立）时整个信号跳过，
// 由冷启动兜底，不算错误。
type Collaborative struct {
	Finder  *similarity.Finder
	Ratings core.RatingStore

	// LikeThreshold 邻居评分计入贡献的下限
	LikeThreshold float64
}

const defaultLikeThreshold = 7.0

var (
	_ Signal  = (*Collaborative)(nil)
	_ Batcher = (*Collaborative)(nil)
)

func (s *Collaborative) Name() string { return "collaborative" }

func (s *Collaborative) Score(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (float64, []string, error) {
	results, err := s.ScoreAll(ctx, rctx, []*core.Item{item})
	if err != nil {
		return 0, nil, err
	}
	return results[0].Value, results[0].Reasons, nil
}

func (s *Collaborative) ScoreAll(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]Result, error) {
	neighbors, err := s.Finder.Find(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, core.NewInsufficientDataError("similarity", "no comparable readers for user "+rctx.UserID)
	}

	like := s.LikeThreshold
	if like <= 0 {
		like = defaultLikeThreshold
	}

	byUser := make(map[string]float64, len(neighbors))
	for _, nb := range neighbors {
		byUser[nb.UserID] = nb.Correlation
	}

	results := make([]Result, len(items))
	for i, it := range items {
		ratings, err := s.Ratings.GetItemRatings(ctx, it.ID)
		if err != nil {
			if Skippable(err) {
				continue
			}
			return nil, err
		}

		var sum, total float64
		var likes int
		for userID, corr := range byUser {
			r, ok := ratings[userID]
			if !ok || r < like {
				continue
			}
			sum += corr * r
			total += r
			likes++
		}
		if likes == 0 {
			continue
		}
		results[i] = Result{
			Value:   sum,
			Reasons: []string{fmt.Sprintf("Liked by %d similar readers (avg %.1f)", likes, total/float64(likes))},
		}
	}
	return results, nil
}
