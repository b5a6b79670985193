package signal

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/geo"
)

// Geographic 地域信号：同地区读者的偏好加成。
// 以目标用户坐标为圆心划定半径内的评分用户作为同伴集，
// 候选书得分 = 同伴中打高分的人数 × (均分/10)。
//
// 目标用户无坐标、或半径内没有其他评分用户时整个信号跳过。
type Geographic struct {
	Users   core.UserStore
	Ratings core.RatingStore

	// RadiusKm 同伴判定半径（公里）
	RadiusKm float64

	// MaxCohort 同伴集上限，取距离最近的若干人
	MaxCohort int

	// LikeThreshold 同伴评分计入贡献的下限
	LikeThreshold float64
}

const (
	defaultRadiusKm  = 100.0
	defaultMaxCohort = 500

	// 理由文案需要足够的同伴背书才有说服力
	minLikesForReason = 3
)

var (
	_ Signal  = (*Geographic)(nil)
	_ Batcher = (*Geographic)(nil)
)

func (s *Geographic) Name() string { return "geographic" }

func (s *Geographic) Score(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (float64, []string, error) {
	results, err := s.ScoreAll(ctx, rctx, []*core.Item{item})
	if err != nil {
		return 0, nil, err
	}
	return results[0].Value, results[0].Reasons, nil
}

func (s *Geographic) ScoreAll(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]Result, error) {
	attrs := rctx.Attrs
	if attrs == nil || !attrs.Location.HasCoords {
		return nil, core.NewInsufficientDataError("signal", "user has no coordinates")
	}

	cohort, err := s.nearbyRaters(ctx, rctx.UserID, attrs.Location)
	if err != nil {
		return nil, err
	}
	if len(cohort) == 0 {
		return nil, core.NewInsufficientDataError("signal", "no raters within radius")
	}

	like := s.LikeThreshold
	if like <= 0 {
		like = defaultLikeThreshold
	}

	area := attrs.Location.City
	if area == "" {
		area = "your area"
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

		var sum float64
		var likes int
		for userID := range cohort {
			r, ok := ratings[userID]
			if !ok || r < like {
				continue
			}
			sum += r
			likes++
		}
		if likes == 0 {
			continue
		}
		avg := sum / float64(likes)
		results[i] = Result{Value: float64(likes) * (avg / 10)}
		if likes >= minLikesForReason {
			results[i].Reasons = []string{fmt.Sprintf("Popular near %s: %d readers", area, likes)}
		}
	}
	return results, nil
}

// nearbyRaters 返回半径内有评分历史的用户集合（不含目标用户本人），
// 超过 MaxCohort 时保留距离最近的部分。
func (s *Geographic) nearbyRaters(ctx context.Context, userID string, loc core.Location) (map[string]bool, error) {
	radius := s.RadiusKm
	if radius <= 0 {
		radius = defaultRadiusKm
	}
	maxCohort := s.MaxCohort
	if maxCohort <= 0 {
		maxCohort = defaultMaxCohort
	}

	raters, err := s.Users.GetRatedUsers(ctx)
	if err != nil {
		return nil, err
	}

	type mate struct {
		id   string
		dist float64
	}
	var mates []mate
	for _, id := range raters {
		if id == userID {
			continue
		}
		attrs, err := s.Users.GetUserAttributes(ctx, id)
		if err != nil {
			if Skippable(err) {
				continue
			}
			return nil, err
		}
		if !attrs.Location.HasCoords {
			continue
		}
		d := geo.Haversine(loc.Latitude, loc.Longitude, attrs.Location.Latitude, attrs.Location.Longitude)
		if d > radius {
			continue
		}
		mates = append(mates, mate{id: id, dist: d})
	}

	sort.Slice(mates, func(i, j int) bool {
		if mates[i].dist != mates[j].dist {
			return mates[i].dist < mates[j].dist
		}
		return mates[i].id < mates[j].id
	})
	if len(mates) > maxCohort {
		mates = mates[:maxCohort]
	}

	cohort := make(map[string]bool, len(mates))
	for _, m := range mates {
		cohort[m.id] = true
	}
	return cohort, nil
}
