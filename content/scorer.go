// Package content 实现内容相似信号：把候选书与用户偏好画像
// （类型、作者、价格区间）逐条规则比对，输出加法分与命中理由。
package content

import (
	"fmt"
	"math"
	"strings"

	"github.com/rushteam/bookrec/core"
)

// Scorer 是内容打分器。规则是加法计分而非概率：
//
//   - 类型：首个命中 +GenrePoints，每多命中一个再 +GenreOverlapPoints
//   - 作者：偏好榜前三命中每位 +AuthorTopPoints，其余命中 +AuthorPoints，
//     总和不超过 AuthorCap（避免单一作者垄断）
//   - 价格：距偏好区间 ≤5 → +15，≤10 → +8，≤20 → +3，更远不加分
//   - 质量：平滑质量分 ≥7 → +2×质量分
//   - 样本量：评分数 ≥10 → +min(5, 2×log10(count))
//
// 全部未命中时返回 (0, nil)。纯函数，无副作用。
type Scorer struct {
	GenrePoints        float64
	GenreOverlapPoints float64
	AuthorTopPoints    float64
	AuthorPoints       float64
	AuthorCap          float64
}

const (
	defaultGenrePoints        = 10
	defaultGenreOverlapPoints = 4
	defaultAuthorTopPoints    = 8
	defaultAuthorPoints       = 5
	defaultAuthorCap          = 16

	// 价格贴近度阶梯（与偏好区间的绝对距离）
	priceTight    = 5.0
	priceNear     = 10.0
	priceLoose    = 20.0
	priceTightPts = 15.0
	priceNearPts  = 8.0
	priceLoosePts = 3.0

	qualityThreshold  = 7.0
	qualityMultiplier = 2.0
	countThreshold    = 10
	countBoostCap     = 5.0

	// 偏好榜前几位算"头部作者"
	topAuthorRank = 3
)

// Score 对一本候选书打内容分。
// metrics 可为 nil（跳过质量与样本量规则）；profile 为 nil 时只有
// 质量/样本量规则可能命中。
func (s *Scorer) Score(profile *core.UserProfile, book *core.Book, metrics *core.ItemMetrics) (float64, []string) {
	if book == nil {
		return 0, nil
	}

	genrePts := s.GenrePoints
	if genrePts <= 0 {
		genrePts = defaultGenrePoints
	}
	overlapPts := s.GenreOverlapPoints
	if overlapPts <= 0 {
		overlapPts = defaultGenreOverlapPoints
	}
	topAuthorPts := s.AuthorTopPoints
	if topAuthorPts <= 0 {
		topAuthorPts = defaultAuthorTopPoints
	}
	authorPts := s.AuthorPoints
	if authorPts <= 0 {
		authorPts = defaultAuthorPoints
	}
	authorCap := s.AuthorCap
	if authorCap <= 0 {
		authorCap = defaultAuthorCap
	}

	var score float64
	var reasons []string

	// 类型命中
	if matched := matchedGenres(profile, book); len(matched) > 0 {
		score += genrePts + overlapPts*float64(len(matched)-1)
		reasons = append(reasons, "Genre: "+strings.Join(matched, ", "))
	}

	// 作者命中（带头部加成与封顶）
	if profile != nil {
		var authorScore float64
		for _, author := range book.Authors {
			rank := profile.AuthorRank(author)
			if rank < 0 {
				continue
			}
			if rank < topAuthorRank {
				authorScore += topAuthorPts
			} else {
				authorScore += authorPts
			}
			reasons = append(reasons, "Author: "+author)
		}
		if authorScore > authorCap {
			authorScore = authorCap
		}
		score += authorScore
	}

	// 价格贴近度
	if dist := profile.PriceDistance(book.Price); dist >= 0 {
		if pts := pricePoints(dist); pts > 0 {
			score += pts
			reasons = append(reasons, fmt.Sprintf("Price fit: $%.2f", book.Price))
		}
	}

	// 质量与样本量（来自派生指标）
	if metrics != nil {
		if metrics.Count > 0 && metrics.QualityScore >= qualityThreshold {
			score += metrics.QualityScore * qualityMultiplier
			reasons = append(reasons, fmt.Sprintf("High rating: %.1f/10", metrics.QualityScore))
		}
		if metrics.Count >= countThreshold {
			boost := 2 * math.Log10(float64(metrics.Count))
			if boost > countBoostCap {
				boost = countBoostCap
			}
			score += boost
			reasons = append(reasons, fmt.Sprintf("Well-reviewed: %d ratings", metrics.Count))
		}
	}

	return score, reasons
}

// pricePoints 把价格距离映射到阶梯分。
func pricePoints(dist float64) float64 {
	switch {
	case dist <= priceTight:
		return priceTightPts
	case dist <= priceNear:
		return priceNearPts
	case dist <= priceLoose:
		return priceLoosePts
	default:
		return 0
	}
}

// matchedGenres 返回书目与用户偏好重叠的类型，保持书目声明顺序。
func matchedGenres(profile *core.UserProfile, book *core.Book) []string {
	if profile == nil || len(profile.PreferredGenres) == 0 {
		return nil
	}
	var matched []string
	for _, g := range book.Genres {
		if profile.LikesGenre(g) {
			matched = append(matched, g)
		}
	}
	return matched
}
