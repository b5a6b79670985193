// Package trending 基于逻辑时钟识别近期升温的书目。
//
// “近期”不依赖墙上时钟：交互带单调递增的 ItemSeq，序号最高的一段
// 即最新活动。速度分衡量近期活动量与口碑，动量分衡量口碑走向
// （最近一段评分是否好于更早的历史）。
package trending

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/bookrec/core"
)

// Detector 趋势检测器。
type Detector struct {
	Log     core.InteractionLog
	Catalog core.CatalogStore

	// RecentPercent 近期窗口占序号空间的百分比
	RecentPercent float64

	// MinRecent 进入趋势候选所需的近期交互数下限
	MinRecent int

	// MinTotal 计算动量所需的显式评分总数下限
	MinTotal int

	// CandidateLimit 速度榜候选上限
	CandidateLimit int
}

const (
	defaultRecentPercent  = 10.0
	defaultMinRecent      = 10
	defaultMinTotal       = 20
	defaultCandidateLimit = 50

	// 动量拆分点：最早 70% 对比最近 30%
	momentumSplit = 0.7
)

// TrendingBooks 返回速度分降序的趋势书单。
// genre 非空时按类型过滤；过滤后为空则回退到不过滤的榜单。
// limit <= 0 表示不额外截断。没有任何近期活动时返回空列表。
func (d *Detector) TrendingBooks(ctx context.Context, genre string, limit int) ([]*core.Item, error) {
	candidates, err := d.velocity(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if genre != "" {
		filtered, err := d.filterByGenre(ctx, candidates, genre)
		if err != nil {
			return nil, err
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	for _, c := range candidates {
		m, err := d.Momentum(ctx, c.isbn)
		if err != nil {
			return nil, err
		}
		c.momentum = m
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].isbn < candidates[j].isbn
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	items := make([]*core.Item, 0, len(candidates))
	for _, c := range candidates {
		it := core.NewItem(c.isbn)
		it.Score = c.score
		it.SetFeature("velocity_score", c.score)
		it.SetFeature("recent_count", float64(c.count))
		it.SetFeature("recent_avg", c.avg)
		it.SetFeature("momentum", c.momentum)
		it.PutReason("trending", fmt.Sprintf("Trending: %d recent ratings averaging %.1f", c.count, c.avg))
		if c.momentum > 0 {
			it.PutReason("trending", fmt.Sprintf("Gaining momentum (+%.1f recent trend)", c.momentum))
		}
		items = append(items, it)
	}
	return items, nil
}

// Momentum 对比一本书最近 30% 与最早 70% 显式评分的均值差。
// 正值代表口碑上行。显式评分不足 MinTotal 时返回 0。
func (d *Detector) Momentum(ctx context.Context, isbn string) (float64, error) {
	minTotal := d.MinTotal
	if minTotal <= 0 {
		minTotal = defaultMinTotal
	}

	interactions, err := d.Log.GetItemInteractions(ctx, isbn)
	if err != nil {
		return 0, err
	}

	var explicit []float64
	for _, in := range interactions {
		if in.IsExplicit() {
			explicit = append(explicit, in.Rating)
		}
	}
	if len(explicit) < minTotal {
		return 0, nil
	}

	oldCount := int(float64(len(explicit)) * momentumSplit)
	oldAvg := meanOf(explicit[:oldCount])
	recentAvg := meanOf(explicit[oldCount:])
	return recentAvg - oldAvg, nil
}

// candidate 聚合一本书在近期窗口内的活动。
type candidate struct {
	isbn     string
	count    int     // 近期交互数（含 implicit，衡量活动量）
	avg      float64 // 近期显式评分均值
	score    float64 // velocity = count × avg/10
	momentum float64
}

// velocity 聚合近期窗口，产出速度榜候选（共识量降序，均分降序截断）。
func (d *Detector) velocity(ctx context.Context) ([]*candidate, error) {
	pct := d.RecentPercent
	if pct <= 0 {
		pct = defaultRecentPercent
	}
	minRecent := d.MinRecent
	if minRecent <= 0 {
		minRecent = defaultMinRecent
	}
	candidateLimit := d.CandidateLimit
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}

	maxSeq, err := d.Log.MaxItemSeq(ctx)
	if err != nil {
		return nil, err
	}
	if maxSeq == 0 {
		return nil, nil
	}

	sinceSeq := int64(math.Ceil(float64(maxSeq) * (1 - pct/100)))
	recents, err := d.Log.RecentInteractions(ctx, sinceSeq)
	if err != nil {
		return nil, err
	}

	type agg struct {
		count         int
		explicitSum   float64
		explicitCount int
	}
	byISBN := make(map[string]*agg)
	for _, in := range recents {
		a, ok := byISBN[in.ISBN]
		if !ok {
			a = &agg{}
			byISBN[in.ISBN] = a
		}
		a.count++
		if in.IsExplicit() {
			a.explicitSum += in.Rating
			a.explicitCount++
		}
	}

	var candidates []*candidate
	for isbn, a := range byISBN {
		if a.count < minRecent || a.explicitCount == 0 {
			continue
		}
		avg := a.explicitSum / float64(a.explicitCount)
		candidates = append(candidates, &candidate{
			isbn:  isbn,
			count: a.count,
			avg:   avg,
			score: float64(a.count) * (avg / 10),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		if candidates[i].avg != candidates[j].avg {
			return candidates[i].avg > candidates[j].avg
		}
		return candidates[i].isbn < candidates[j].isbn
	})
	if len(candidates) > candidateLimit {
		candidates = candidates[:candidateLimit]
	}
	return candidates, nil
}

func (d *Detector) filterByGenre(ctx context.Context, candidates []*candidate, genre string) ([]*candidate, error) {
	var filtered []*candidate
	for _, c := range candidates {
		book, err := d.Catalog.GetBook(ctx, c.isbn)
		if err != nil {
			if core.IsNotFound(err) || core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		if book.HasGenre(genre) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
