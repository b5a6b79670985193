package recall

import (
	"context"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
	"github.com/rushteam/bookrec/similarity"
)

// Neighbors 召回口味相近读者高分评过的书（user-based CF 的召回侧）。
//
// 邻居由 similarity.Finder 给出（按相关度降序），每个邻居贡献自己
// 评分达到 LikeThreshold 的书；同一本书被多个邻居命中时保留最近邻
// 的条目，liked_by label 累积所有命中者。目标读者已交互过的书在本
// 源就跳过，不占候选配额（IncludeRated 请求除外）。
type Neighbors struct {
	Finder  *similarity.Finder
	Ratings core.RatingStore

	// LikeThreshold 邻居评分达到该值才算"喜欢"（默认 7）
	LikeThreshold float64
	// MaxBooks 总候选上限（默认 200）
	MaxBooks int
}

func (r *Neighbors) Name() string { return "recall.neighbors" }

func (r *Neighbors) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Finder == nil || r.Ratings == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	neighbors, err := r.Finder.Find(ctx, rctx.UserID)
	if err != nil {
		if core.IsNotFound(err) || core.IsInsufficientData(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	threshold := r.LikeThreshold
	if threshold <= 0 {
		threshold = 7
	}
	maxBooks := r.MaxBooks
	if maxBooks <= 0 {
		maxBooks = 200
	}

	rated := rctx.RatedSet()
	if rctx.IncludeRated {
		rated = nil
	}
	seen := make(map[string]*core.Item, maxBooks)
	out := make([]*core.Item, 0, maxBooks)
	for _, nb := range neighbors {
		ratings, err := r.Ratings.GetUserRatings(ctx, nb.UserID)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, isbn := range likedBooks(ratings, threshold) {
			if rated[isbn] {
				continue
			}
			if old, ok := seen[isbn]; ok {
				old.PutLabel("liked_by", utils.Label{Value: nb.UserID, Source: r.Name()})
				continue
			}
			if len(out) >= maxBooks {
				continue
			}
			it := core.NewItem(isbn)
			it.PutLabel("liked_by", utils.Label{Value: nb.UserID, Source: r.Name()})
			seen[isbn] = it
			out = append(out, it)
		}
	}
	return out, nil
}

// likedBooks 返回评分达标的 ISBN，按评分降序、同分 ISBN 升序排列，
// 保证同一邻居的贡献顺序确定。
func likedBooks(ratings map[string]float64, threshold float64) []string {
	liked := make([]string, 0, len(ratings))
	for isbn, rating := range ratings {
		if rating >= threshold {
			liked = append(liked, isbn)
		}
	}
	sort.Slice(liked, func(i, j int) bool {
		if ratings[liked[i]] != ratings[liked[j]] {
			return ratings[liked[i]] > ratings[liked[j]]
		}
		return liked[i] < liked[j]
	})
	return liked
}
