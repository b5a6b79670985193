// Package coldstart 为低历史用户提供人口学同伴兜底推荐。
//
// 触发条件由调用方判断（IsCold 或个性化信号全部落空）。
// 候选来自同年龄段同性别读者的高分书，按同伴共识与全局质量混合排序，
// 不依赖目标用户的任何评分信号。
package coldstart

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rushteam/bookrec/core"
)

// Recommender 人口学冷启动推荐器。
type Recommender struct {
	Users   core.UserStore
	Ratings core.RatingStore
	Metrics core.MetricsStore

	// Threshold 冷启动判定线：交互数（含 implicit）低于该值视为冷用户
	Threshold int

	// LikeThreshold 同伴评分计入共识的下限
	LikeThreshold float64

	// MinAgreement 一本书至少被多少位同伴打出高分才可作候选
	MinAgreement int

	// BlendWeight 全局质量分的混入权重，避免纯人口学过拟合
	BlendWeight float64

	// CohortLimit 同伴集人数上限；人数不足一半时用随机评分用户补齐
	CohortLimit int

	// Seed 随机补齐的种子，固定种子保证结果可复现
	Seed int64
}

const (
	defaultThreshold     = 20
	defaultLikeThreshold = 7.0
	defaultMinAgreement  = 5
	defaultBlendWeight   = 0.3
	defaultCohortLimit   = 100
	defaultSeed          = 42

	// 共识候选池上限，混排前先按共识截断
	candidateLimit = 100
)

// IsCold 判断用户是否处于冷启动区间。
func (r *Recommender) IsCold(ctx context.Context, userID string) (bool, error) {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	ratings, err := r.Ratings.GetUserRatings(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(ratings) < threshold, nil
}

// Recommend 返回冷启动推荐，排序与常规链路一致：总分降序，同分按 ISBN 升序。
// 同伴集为空或没有书达到共识门槛时返回空列表，不算错误。
func (r *Recommender) Recommend(ctx context.Context, userID string, k int) ([]*core.Item, error) {
	if k <= 0 {
		return nil, core.NewConfigurationError("coldstart", fmt.Sprintf("k must be positive, got %d", k))
	}

	rated, err := r.Ratings.GetUserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}

	cohort, err := r.cohort(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cohort) == 0 {
		return nil, nil
	}

	favorites, err := r.cohortFavorites(ctx, cohort, rated)
	if err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return nil, nil
	}

	if err := r.blendQuality(ctx, favorites); err != nil {
		return nil, err
	}

	sort.Slice(favorites, func(i, j int) bool {
		if favorites[i].total != favorites[j].total {
			return favorites[i].total > favorites[j].total
		}
		return favorites[i].isbn < favorites[j].isbn
	})
	if len(favorites) > k {
		favorites = favorites[:k]
	}

	items := make([]*core.Item, 0, len(favorites))
	for _, f := range favorites {
		it := core.NewItem(f.isbn)
		it.Score = f.total
		it.SetFeature("cohort_count", float64(f.count))
		it.SetFeature("cohort_avg", f.avg())
		it.SetFeature("quality_score", f.quality)
		it.PutReason("coldstart", fmt.Sprintf("%d readers like you rated this %.1f/10", f.count, f.avg()))
		items = append(items, it)
	}
	return items, nil
}

// favorite 聚合同伴对一本书的共识。
type favorite struct {
	isbn    string
	count   int
	sum     float64
	quality float64
	total   float64
}

func (f *favorite) avg() float64 {
	if f.count == 0 {
		return 0
	}
	return f.sum / float64(f.count)
}

// cohort 组装同伴集：人口学匹配优先，不足时随机补齐评分用户。
// 目标用户不在仓储中时返回 NOT_FOUND。
func (r *Recommender) cohort(ctx context.Context, userID string) ([]string, error) {
	limit := r.CohortLimit
	if limit <= 0 {
		limit = defaultCohortLimit
	}

	attrs, err := r.Users.GetUserAttributes(ctx, userID)
	if err != nil {
		return nil, err
	}

	raters, err := r.Users.GetRatedUsers(ctx)
	if err != nil {
		return nil, err
	}
	ratedSet := make(map[string]bool, len(raters))
	for _, id := range raters {
		ratedSet[id] = true
	}

	var cohort []string
	inCohort := map[string]bool{userID: true}
	if attrs.AgeBracket != "" || attrs.Gender != "" {
		peers, err := r.Users.GetUsersByCohort(ctx, attrs.AgeBracket, attrs.Gender)
		if err != nil {
			return nil, err
		}
		for _, id := range peers {
			if inCohort[id] || !ratedSet[id] {
				continue
			}
			cohort = append(cohort, id)
			inCohort[id] = true
			if len(cohort) >= limit {
				break
			}
		}
	}

	// 人口学同伴不足一半时补齐随机评分用户，保持共识门槛可达
	if len(cohort) < limit/2 {
		rest := make([]string, 0, len(raters))
		for _, id := range raters {
			if !inCohort[id] {
				rest = append(rest, id)
			}
		}
		sort.Strings(rest)
		seed := r.Seed
		if seed == 0 {
			seed = defaultSeed
		}
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		for _, id := range rest {
			if len(cohort) >= limit {
				break
			}
			cohort = append(cohort, id)
		}
	}
	return cohort, nil
}

// cohortFavorites 聚合同伴的高分书，过滤目标用户已读，按共识截断候选池。
func (r *Recommender) cohortFavorites(ctx context.Context, cohort []string, rated map[string]float64) ([]*favorite, error) {
	like := r.LikeThreshold
	if like <= 0 {
		like = defaultLikeThreshold
	}
	minAgreement := r.MinAgreement
	if minAgreement <= 0 {
		minAgreement = defaultMinAgreement
	}

	agg := make(map[string]*favorite)
	for _, peer := range cohort {
		ratings, err := r.Ratings.GetUserRatings(ctx, peer)
		if err != nil {
			return nil, err
		}
		for isbn, rating := range ratings {
			if rating < like {
				continue
			}
			if _, seen := rated[isbn]; seen {
				continue
			}
			f, ok := agg[isbn]
			if !ok {
				f = &favorite{isbn: isbn}
				agg[isbn] = f
			}
			f.count++
			f.sum += rating
		}
	}

	favorites := make([]*favorite, 0, len(agg))
	for _, f := range agg {
		if f.count >= minAgreement {
			favorites = append(favorites, f)
		}
	}
	sort.Slice(favorites, func(i, j int) bool {
		if favorites[i].count != favorites[j].count {
			return favorites[i].count > favorites[j].count
		}
		if favorites[i].avg() != favorites[j].avg() {
			return favorites[i].avg() > favorites[j].avg()
		}
		return favorites[i].isbn < favorites[j].isbn
	})
	if len(favorites) > candidateLimit {
		favorites = favorites[:candidateLimit]
	}
	return favorites, nil
}

// blendQuality 把全局质量分按权重混入共识分。
// total = count×avg + quality×10×weight，指标缺失时退化为纯共识分。
func (r *Recommender) blendQuality(ctx context.Context, favorites []*favorite) error {
	weight := r.BlendWeight
	if weight <= 0 {
		weight = defaultBlendWeight
	}
	for _, f := range favorites {
		f.total = float64(f.count) * f.avg()
		if r.Metrics == nil {
			continue
		}
		m, err := r.Metrics.GetItemMetrics(ctx, f.isbn)
		if err != nil {
			if core.IsNotFound(err) || core.IsStoreNotFound(err) {
				continue
			}
			return err
		}
		f.quality = m.QualityScore
		f.total += m.QualityScore * 10 * weight
	}
	return nil
}
