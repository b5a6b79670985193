package similarity

import (
	"context"
	"sort"

	"github.com/rushteam/bookrec/core"
)

// Neighbor 是一条用户-用户相似边：相关系数与共同评分书目数。
// 每次请求现算现用，不落库。
type Neighbor struct {
	UserID      string
	Correlation float64
	CommonItems int
}

// Finder 发现与目标用户评分口味相似的邻居。
//
// 算法流程：
//  1. 候选收敛：只考虑与目标用户至少共同评过一本书的用户（按书目倒排取并集）
//  2. 对每个候选计算共同书目上的 Pearson 相关系数（只用显式评分）
//  3. 丢弃共同书目数不足或零方差的候选
//  4. 保留相关系数高于 MinCorrelation 的正相关邻居
//  5. 按相关系数降序，前 TopK
//
// 工程特征：
//   - 可解释性：强（共同书目数可直接进解释文案）
//   - 冷启动：差（无评分用户返回空，调用方转冷启动兜底）
type Finder struct {
	Ratings core.RatingStore

	// MinCommon 两个用户至少共同评分的书目数
	MinCommon int

	// MinCorrelation 相关系数下限，低于等于该值的候选被丢弃
	MinCorrelation float64

	// CandidateLimit 候选用户池上限，防止热门书把候选池撑爆
	CandidateLimit int

	// TopK 返回的邻居数上限
	TopK int
}

const (
	defaultMinCommon      = 5
	defaultMinCorrelation = 0.3
	defaultCandidateLimit = 500
	defaultTopK           = 20
)

// Find 返回目标用户的邻居列表，按相关系数降序。
// 目标用户没有任何显式评分时返回空列表（nil error），由调用方路由到冷启动。
func (f *Finder) Find(ctx context.Context, userID string) ([]Neighbor, error) {
	if f.Ratings == nil || userID == "" {
		return nil, nil
	}

	minCommon := f.MinCommon
	if minCommon <= 0 {
		minCommon = defaultMinCommon
	}
	minCorr := f.MinCorrelation
	if minCorr <= 0 {
		minCorr = defaultMinCorrelation
	}
	candidateLimit := f.CandidateLimit
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	topK := f.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	ratings, err := f.Ratings.GetUserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	target := explicitOnly(ratings)
	if len(target) == 0 {
		return nil, nil
	}

	candidates, err := f.collectCandidates(ctx, userID, target, candidateLimit)
	if err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, 0, len(candidates))
	for _, candidateID := range candidates {
		candidateRatings, err := f.Ratings.GetUserRatings(ctx, candidateID)
		if err != nil {
			continue
		}
		other := explicitOnly(candidateRatings)

		r, n, ok := Pearson(target, other)
		if !ok || n < minCommon {
			continue
		}
		if r <= minCorr {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			UserID:      candidateID,
			Correlation: r,
			CommonItems: n,
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Correlation != neighbors[j].Correlation {
			return neighbors[i].Correlation > neighbors[j].Correlation
		}
		if neighbors[i].CommonItems != neighbors[j].CommonItems {
			return neighbors[i].CommonItems > neighbors[j].CommonItems
		}
		return neighbors[i].UserID < neighbors[j].UserID
	})
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors, nil
}

// collectCandidates 按目标用户评过的书取评分者并集，排序保证确定性，截断到上限。
func (f *Finder) collectCandidates(
	ctx context.Context,
	userID string,
	target map[string]float64,
	limit int,
) ([]string, error) {
	seen := make(map[string]struct{})
	for isbn := range target {
		raters, err := f.Ratings.GetItemRatings(ctx, isbn)
		if err != nil {
			continue
		}
		for raterID := range raters {
			if raterID == userID {
				continue
			}
			seen[raterID] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(seen))
	for id := range seen {
		candidates = append(candidates, id)
	}
	sort.Strings(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// explicitOnly 过滤掉 0 分 implicit 记录，统计只认显式评分。
func explicitOnly(ratings map[string]float64) map[string]float64 {
	if len(ratings) == 0 {
		return nil
	}
	out := make(map[string]float64, len(ratings))
	for isbn, r := range ratings {
		if r > 0 {
			out[isbn] = r
		}
	}
	return out
}
