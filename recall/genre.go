package recall

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// Genre 按读者的偏好题材召回候选书。
//
// 画像优先取 rctx.User（引擎预载），否则从 Profiles 兜底读取；没有
// 画像或画像中没有偏好题材时返回空，由热门/冷启动等其他源补位。
// PreferredGenres 按偏好强度降序，靠前的题材先占配额。
type Genre struct {
	Catalog  core.CatalogStore
	Profiles core.MetricsStore // 画像兜底来源，可为 nil

	// PerGenre 单个题材的候选上限（默认 200）
	PerGenre int
	// MaxTotal 总候选上限（默认 500）
	MaxTotal int
}

func (r *Genre) Name() string { return "recall.genre" }

func (r *Genre) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Catalog == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	profile := rctx.User
	if profile == nil && r.Profiles != nil {
		p, err := r.Profiles.GetUserProfile(ctx, rctx.UserID)
		if err != nil {
			if core.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		profile = p
	}
	if profile == nil || len(profile.PreferredGenres) == 0 {
		return nil, nil
	}

	perGenre := r.PerGenre
	if perGenre <= 0 {
		perGenre = 200
	}
	maxTotal := r.MaxTotal
	if maxTotal <= 0 {
		maxTotal = 500
	}

	seen := make(map[string]bool, maxTotal)
	out := make([]*core.Item, 0, maxTotal)
	for _, genre := range profile.PreferredGenres {
		if len(out) >= maxTotal {
			break
		}
		isbns, err := r.Catalog.GetBooksByGenre(ctx, genre, perGenre)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, isbn := range isbns {
			if isbn == "" || seen[isbn] {
				continue
			}
			seen[isbn] = true
			it := core.NewItem(isbn)
			it.PutLabel("match_genre", utils.Label{Value: genre, Source: r.Name()})
			out = append(out, it)
			if len(out) >= maxTotal {
				break
			}
		}
	}
	return out, nil
}
