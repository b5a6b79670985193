package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/stats"
)

// Component 是匹配度报告的一个维度得分。
type Component struct {
	Name    string
	Score   float64
	Reasons []string
}

// CompatibilityReport 是 (user, book) 的逐维度匹配度分析。
// Components 固定顺序：genre、author、price、quality、popularity。
type CompatibilityReport struct {
	UserID     string
	ISBN       string
	Title      string
	Components []Component
	Total      float64
	Level      string
}

// 匹配度等级门槛。
const (
	levelExcellent = 80
	levelGreat     = 60
	levelGood      = 40
	levelFair      = 20
)

// 各维度加分。
const (
	genreMatchPts      = 20
	authorPtsPerBook   = 5
	authorPtsCap       = 25
	priceTightPts      = 15
	priceNearPts       = 8
	criticalQualityPts = 20
	alignedQualityPts  = 15
	readerQualityPts   = 10
	activePopPts       = 10
	casualPopPts       = 15
)

// Compatibility 计算一本书对一个用户的匹配度报告。
// 用户画像或书目查无记录时返回 NOT_FOUND。
func (g *Generator) Compatibility(ctx context.Context, userID, isbn string) (*CompatibilityReport, error) {
	book, err := g.Catalog.GetBook(ctx, isbn)
	if err != nil {
		return nil, err
	}
	profile, err := g.Metrics.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var metrics *core.ItemMetrics
	m, err := g.Metrics.GetItemMetrics(ctx, isbn)
	switch {
	case err == nil:
		metrics = m
	case core.IsNotFound(err) || core.IsStoreNotFound(err):
		// 指标缺失时质量/热度两个维度记零
	default:
		return nil, err
	}

	ratings, err := g.Ratings.GetUserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	taste, err := g.collectTaste(ctx, userID, ratings, book)
	if err != nil {
		return nil, err
	}

	report := &CompatibilityReport{UserID: userID, ISBN: isbn, Title: book.Title}
	report.Components = []Component{
		genreCompatibility(profile, book),
		authorCompatibility(taste, book),
		priceCompatibility(profile, book),
		qualityCompatibility(profile, metrics),
		popularityCompatibility(profile, metrics),
	}
	for _, c := range report.Components {
		report.Total += c.Score
	}
	report.Level = compatibilityLevel(report.Total)
	return report, nil
}

func genreCompatibility(profile *core.UserProfile, book *core.Book) Component {
	c := Component{Name: "genre"}
	var matched []string
	for _, g := range book.Genres {
		if profile.LikesGenre(g) {
			matched = append(matched, g)
		}
	}
	if len(matched) == 0 {
		return c
	}
	c.Score = float64(len(matched) * genreMatchPts)
	c.Reasons = []string{fmt.Sprintf("Matches %d of your favorite genres: %s", len(matched), strings.Join(matched, ", "))}
	return c
}

func authorCompatibility(t *taste, book *core.Book) Component {
	c := Component{Name: "author"}
	for _, author := range book.Authors {
		count := t.authorCounts[author]
		if count == 0 {
			continue
		}
		pts := float64(count * authorPtsPerBook)
		if pts > authorPtsCap {
			pts = authorPtsCap
		}
		c.Score += pts
		c.Reasons = append(c.Reasons, fmt.Sprintf("Familiar author: %s (you've read %d of their books)", author, count))
	}
	return c
}

func priceCompatibility(profile *core.UserProfile, book *core.Book) Component {
	c := Component{Name: "price"}
	dist := profile.PriceDistance(book.Price)
	if dist < 0 {
		return c
	}
	rng := profile.PriceRange
	switch {
	case dist <= 5:
		c.Score = priceTightPts
		c.Reasons = []string{fmt.Sprintf("Price ($%.2f) matches your usual range ($%.2f-$%.2f)", book.Price, rng.Min, rng.Max)}
	case dist <= 10:
		c.Score = priceNearPts
		c.Reasons = []string{fmt.Sprintf("Price ($%.2f) close to your usual range ($%.2f-$%.2f)", book.Price, rng.Min, rng.Max)}
	default:
		// 记零但保留说明，报告里能看到为什么价格维度没贡献
		c.Reasons = []string{fmt.Sprintf("Price ($%.2f) differs from your usual range ($%.2f-$%.2f)", book.Price, rng.Min, rng.Max)}
	}
	return c
}

func qualityCompatibility(profile *core.UserProfile, metrics *core.ItemMetrics) Component {
	c := Component{Name: "quality"}
	if metrics == nil || metrics.Count == 0 {
		return c
	}
	avg := metrics.Average

	switch profile.CriticProfile {
	case stats.CriticCritical:
		if avg >= 8 {
			c.Score += criticalQualityPts
			c.Reasons = append(c.Reasons, fmt.Sprintf("High quality book (%.1f/10) suits your critical eye", avg))
		}
	case stats.CriticGenerous:
		if avg >= 6 {
			c.Score += alignedQualityPts
			c.Reasons = append(c.Reasons, fmt.Sprintf("Good book (%.1f/10) suits your generous reading style", avg))
		}
	case stats.CriticBalanced:
		if avg >= 6 && avg <= 8 {
			c.Score += alignedQualityPts
			c.Reasons = append(c.Reasons, fmt.Sprintf("Solid book (%.1f/10) matches your balanced rating style", avg))
		}
	}

	if profile.ReaderLevel == stats.ReaderPower &&
		(metrics.QualityCategory == stats.QualityHigh || metrics.QualityCategory == stats.QualityVeryHigh) {
		c.Score += readerQualityPts
		c.Reasons = append(c.Reasons, "Acclaimed book suits your power reader profile")
	}
	return c
}

func popularityCompatibility(profile *core.UserProfile, metrics *core.ItemMetrics) Component {
	c := Component{Name: "popularity"}
	if metrics == nil {
		return c
	}
	pop := metrics.PopularityScore

	switch profile.ReaderLevel {
	case stats.ReaderPower, stats.ReaderActive:
		if pop > 5 {
			c.Score = activePopPts
			c.Reasons = []string{"Popular book suits your active reading profile"}
		}
	case stats.ReaderCasual, stats.ReaderNew:
		if pop > 7 {
			c.Score = casualPopPts
			c.Reasons = []string{"Well-known book good for your reading level"}
		}
	}
	return c
}

func compatibilityLevel(total float64) string {
	switch {
	case total >= levelExcellent:
		return "Excellent Match"
	case total >= levelGreat:
		return "Great Match"
	case total >= levelGood:
		return "Good Match"
	case total >= levelFair:
		return "Fair Match"
	default:
		return "Poor Match"
	}
}
