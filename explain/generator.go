// Package explain 为已产出的推荐生成人类可读的解释与匹配度报告。
//
// 解释是只读的再推导：从仓储重新取信号（类型重合、作者熟悉度、
// 邻居共识、质量档位、相似已爱书目），逐条渲染成短句并标注强度，
// 不产生任何打分副作用。
package explain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/similarity"
)

// Reason 强度档位。
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
)

// Reason 是一条解释：触发的信号类型、强度与文案。
type Reason struct {
	Type     string // genre / author / collaborative / quality / similarity
	Strength string
	Text     string
}

// Explanation 按强度分组的完整解释。
type Explanation struct {
	ISBN      string
	Title     string
	Primary   []Reason // strong
	Secondary []Reason // moderate
	Summary   string
}

// Generator 解释生成器，全部依赖只读仓储。
type Generator struct {
	Ratings core.RatingStore
	Catalog core.CatalogStore
	Metrics core.MetricsStore
	Finder  *similarity.Finder

	// LikeThreshold 判定“喜欢”的评分下限
	LikeThreshold float64

	// LoveThreshold 相似书目规则要求的更高评分下限
	LoveThreshold float64
}

const (
	defaultLikeThreshold = 7.0
	defaultLoveThreshold = 8.0

	// 强度升档阈值
	strongGenreCount    = 5
	strongNeighborCount = 3
	strongQualityScore  = 8.0
)

// Explain 为 (user, book) 生成解释。用户或书目查无记录时返回 NOT_FOUND。
func (g *Generator) Explain(ctx context.Context, userID, isbn string) (*Explanation, error) {
	book, err := g.Catalog.GetBook(ctx, isbn)
	if err != nil {
		return nil, err
	}

	ratings, err := g.Ratings.GetUserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ratings) == 0 {
		// 区分“还没读过书”与“查无此人”
		if _, err := g.Metrics.GetUserProfile(ctx, userID); err != nil {
			return nil, err
		}
	}

	taste, err := g.collectTaste(ctx, userID, ratings, book)
	if err != nil {
		return nil, err
	}

	var reasons []Reason
	reasons = append(reasons, g.genreReasons(book, taste)...)
	reasons = append(reasons, g.authorReasons(book, taste)...)

	collab, err := g.neighborReason(ctx, userID, isbn)
	if err != nil {
		return nil, err
	}
	reasons = append(reasons, collab...)

	quality, err := g.qualityReason(ctx, isbn)
	if err != nil {
		return nil, err
	}
	reasons = append(reasons, quality...)
	reasons = append(reasons, g.similarityReason(taste)...)

	exp := &Explanation{ISBN: isbn, Title: book.Title}
	for _, r := range reasons {
		if r.Strength == StrengthStrong {
			exp.Primary = append(exp.Primary, r)
		} else {
			exp.Secondary = append(exp.Secondary, r)
		}
	}
	exp.Summary = summarize(book.Title, exp.Primary, exp.Secondary)
	return exp, nil
}

// taste 是对用户已评分书目的一次性再推导，供多条规则共享。
type taste struct {
	genreCounts  map[string]int     // 喜欢的书里各类型出现次数
	authorCounts map[string]int     // 喜欢的书里各作者出现次数
	authorSum    map[string]float64 // 对应评分之和
	lovedSimilar []lovedBook        // 高分且与目标书同类型的书
}

type lovedBook struct {
	title  string
	rating float64
}

func (g *Generator) collectTaste(ctx context.Context, userID string, ratings map[string]float64, target *core.Book) (*taste, error) {
	like := g.LikeThreshold
	if like <= 0 {
		like = defaultLikeThreshold
	}
	love := g.LoveThreshold
	if love <= 0 {
		love = defaultLoveThreshold
	}

	t := &taste{
		genreCounts:  make(map[string]int),
		authorCounts: make(map[string]int),
		authorSum:    make(map[string]float64),
	}

	isbns := make([]string, 0, len(ratings))
	for isbn := range ratings {
		isbns = append(isbns, isbn)
	}
	sort.Strings(isbns)

	for _, isbn := range isbns {
		r := ratings[isbn]
		if r < like || isbn == target.ISBN {
			continue
		}
		book, err := g.Catalog.GetBook(ctx, isbn)
		if err != nil {
			if core.IsNotFound(err) || core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, genre := range book.Genres {
			t.genreCounts[genre]++
		}
		for _, author := range book.Authors {
			t.authorCounts[author]++
			t.authorSum[author] += r
		}
		if r >= love && sharesGenre(book, target) {
			t.lovedSimilar = append(t.lovedSimilar, lovedBook{title: book.Title, rating: r})
		}
	}

	sort.Slice(t.lovedSimilar, func(i, j int) bool {
		if t.lovedSimilar[i].rating != t.lovedSimilar[j].rating {
			return t.lovedSimilar[i].rating > t.lovedSimilar[j].rating
		}
		return t.lovedSimilar[i].title < t.lovedSimilar[j].title
	})
	return t, nil
}

func (g *Generator) genreReasons(book *core.Book, t *taste) []Reason {
	var reasons []Reason
	for _, genre := range book.Genres {
		count := t.genreCounts[genre]
		if count == 0 {
			continue
		}
		strength := StrengthModerate
		if count >= strongGenreCount {
			strength = StrengthStrong
		}
		reasons = append(reasons, Reason{
			Type:     "genre",
			Strength: strength,
			Text:     fmt.Sprintf("This book is in the %s genre, which you've enjoyed in %d other books", genre, count),
		})
	}
	return reasons
}

func (g *Generator) authorReasons(book *core.Book, t *taste) []Reason {
	var reasons []Reason
	for _, author := range book.Authors {
		count := t.authorCounts[author]
		if count == 0 {
			continue
		}
		avg := t.authorSum[author] / float64(count)
		reasons = append(reasons, Reason{
			Type:     "author",
			Strength: StrengthStrong,
			Text:     fmt.Sprintf("You've enjoyed %d other books by %s (average rating: %.1f/10)", count, author, avg),
		})
	}
	return reasons
}

func (g *Generator) neighborReason(ctx context.Context, userID, isbn string) ([]Reason, error) {
	if g.Finder == nil {
		return nil, nil
	}
	like := g.LikeThreshold
	if like <= 0 {
		like = defaultLikeThreshold
	}

	neighbors, err := g.Finder.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	itemRatings, err := g.Ratings.GetItemRatings(ctx, isbn)
	if err != nil {
		return nil, err
	}

	var sum float64
	var count int
	for _, nb := range neighbors {
		r, ok := itemRatings[nb.UserID]
		if !ok || r < like {
			continue
		}
		sum += r
		count++
	}
	if count == 0 {
		return nil, nil
	}

	strength := StrengthModerate
	if count >= strongNeighborCount {
		strength = StrengthStrong
	}
	return []Reason{{
		Type:     "collaborative",
		Strength: strength,
		Text:     fmt.Sprintf("%d readers with similar taste rated this book highly (average: %.1f/10)", count, sum/float64(count)),
	}}, nil
}

func (g *Generator) qualityReason(ctx context.Context, isbn string) ([]Reason, error) {
	m, err := g.Metrics.GetItemMetrics(ctx, isbn)
	if err != nil {
		if core.IsNotFound(err) || core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	like := g.LikeThreshold
	if like <= 0 {
		like = defaultLikeThreshold
	}

	switch {
	case m.QualityScore >= like:
		strength := StrengthModerate
		if m.QualityScore >= strongQualityScore {
			strength = StrengthStrong
		}
		return []Reason{{
			Type:     "quality",
			Strength: strength,
			Text:     fmt.Sprintf("Highly rated book (%.1f/10 from %d readers, quality score: %.1f)", m.Average, m.Count, m.QualityScore),
		}}, nil
	case m.Average >= like:
		return []Reason{{
			Type:     "quality",
			Strength: StrengthModerate,
			Text:     fmt.Sprintf("Well-rated book (%.1f/10 from %d readers)", m.Average, m.Count),
		}}, nil
	}
	return nil, nil
}

func (g *Generator) similarityReason(t *taste) []Reason {
	if len(t.lovedSimilar) == 0 {
		return nil
	}
	titles := make([]string, 0, 2)
	for _, b := range t.lovedSimilar {
		titles = append(titles, fmt.Sprintf("%q", b.title))
		if len(titles) == 2 {
			break
		}
	}
	return []Reason{{
		Type:     "similarity",
		Strength: StrengthModerate,
		Text:     "Similar to books you loved like " + strings.Join(titles, ", "),
	}}
}

// summarize 拼装一句话总结：优先强理由，最多两条；一条强理由时
// 允许补一条次理由。没有任何理由时回退到大众口碑话术。
func summarize(title string, primary, secondary []Reason) string {
	if len(primary) == 0 && len(secondary) == 0 {
		return fmt.Sprintf("We recommend %q based on general popularity.", title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "We recommend %q because:", title)

	if len(primary) > 0 {
		texts := make([]string, 0, 2)
		for _, r := range primary {
			texts = append(texts, strings.ToLower(r.Text))
			if len(texts) == 2 {
				break
			}
		}
		b.WriteString(" " + strings.Join(texts, ", and "))
	}

	if len(secondary) > 0 && len(primary) < 2 {
		if len(primary) > 0 {
			b.WriteString("; additionally, " + strings.ToLower(secondary[0].Text))
		} else {
			b.WriteString(" " + strings.ToLower(secondary[0].Text))
		}
	}

	b.WriteString(".")
	return b.String()
}

func sharesGenre(a, b *core.Book) bool {
	for _, g := range a.Genres {
		if b.HasGenre(g) {
			return true
		}
	}
	return false
}
