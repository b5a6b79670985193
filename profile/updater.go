// Package profile 是外部更新进程的参考实现：一条新评分落库后，
// 重新计算这本书的派生指标与这位读者的行为画像，并整体覆写。
//
// 引擎侧对指标与画像只读；写路径只有这里。重算是全量的：
// 单条交互的增量维护不值得为它引入一致性状态机。
package profile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/stats"
	"github.com/rushteam/bookrec/store"
)

const (
	defaultLikeThreshold = 7.0
	defaultRecentPercent = 10.0
	defaultFavoriteLimit = 5

	defaultRankingKey = "popular:books"

	maxGenres     = 5
	maxAuthors    = 5
	maxPublishers = 3
)

// Updater 在每条评分后重算派生数据。
type Updater struct {
	Data  *store.BookStoreAdapter
	Clock core.SeqClock

	// Ranking 可选：非空时维护热门榜 zset（recall.Popular 的数据源），
	// member 为 ISBN，score 为热度分
	Ranking core.KeyValueStore
	// RankingKey 热门榜 key，默认 "popular:books"
	RankingKey string

	// LikeThreshold 偏好抽取的喜爱阈值，默认 7
	LikeThreshold float64
	// RecentPercent 近期窗口占序号空间的百分比，默认 10（与趋势检测一致）
	RecentPercent float64
	// FavoriteLimit 收藏位上限，默认 5
	FavoriteLimit int
}

// RecordRating 写入一条评分并级联重算。
//
// 评分使用 0-10 刻度，0 表示 implicit。同一 (userID, isbn) 重复评分
// 是更新而非第二次事件：逻辑时钟序号保留首次值。
func (u *Updater) RecordRating(ctx context.Context, userID, isbn string, rating float64) error {
	if userID == "" || isbn == "" {
		return core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidInput,
			"profile: rating requires user id and ISBN")
	}
	if rating < 0 || rating > 10 {
		return core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidInput,
			fmt.Sprintf("profile: rating %.1f outside 0-10 scale", rating))
	}

	in := core.Interaction{
		UserID:   userID,
		ISBN:     isbn,
		Rating:   rating,
		Category: stats.RatingCategory(rating),
	}

	// 只有新 (userID, isbn) 对消耗时钟序号
	existing, err := u.Data.GetUserRatings(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := existing[isbn]; !ok {
		if in.UserSeq, err = u.Clock.NextUserSeq(ctx, userID); err != nil {
			return err
		}
		if in.ItemSeq, err = u.Clock.NextItemSeq(ctx, isbn); err != nil {
			return err
		}
	}

	if _, err := u.Data.UpsertInteraction(ctx, in); err != nil {
		return err
	}

	metrics, err := u.refreshItemMetrics(ctx, isbn)
	if err != nil {
		return err
	}
	if _, err := u.refreshUserProfile(ctx, userID); err != nil {
		return err
	}

	if u.Ranking != nil {
		key := u.RankingKey
		if key == "" {
			key = defaultRankingKey
		}
		if err := u.Ranking.ZAdd(ctx, key, metrics.PopularityScore, isbn); err != nil {
			return err
		}
	}
	return nil
}

// refreshItemMetrics 从交互明细整体重算一本书的指标。
// 统计口径：Count/Total/Average/Std 只算显式评分，
// RecentCount/热度按全部交互（implicit 也是活动）。
func (u *Updater) refreshItemMetrics(ctx context.Context, isbn string) (*core.ItemMetrics, error) {
	log, err := u.Data.GetItemInteractions(ctx, isbn)
	if err != nil {
		return nil, err
	}

	var explicit []float64
	for _, in := range log {
		if in.IsExplicit() {
			explicit = append(explicit, in.Rating)
		}
	}
	var total float64
	for _, r := range explicit {
		total += r
	}

	m := &core.ItemMetrics{
		ISBN:    isbn,
		Count:   len(explicit),
		Total:   total,
		Average: stats.Average(total, len(explicit)),
		Std:     stats.Std(explicit),
	}
	m.QualityScore = stats.QualityScore(total, len(explicit))
	m.QualityCategory = stats.QualityCategory(m.Average)

	maxSeq, err := u.Data.MaxItemSeq(ctx)
	if err != nil {
		return nil, err
	}
	if maxSeq > 0 {
		pct := u.RecentPercent
		if pct <= 0 {
			pct = defaultRecentPercent
		}
		sinceSeq := int64(math.Ceil(float64(maxSeq) * (1 - pct/100)))
		for _, in := range log {
			if in.ItemSeq >= sinceSeq {
				m.RecentCount++
			}
		}
	}
	m.PopularityScore = stats.PopularityScore(m.RecentCount, len(log))
	m.PopularityCategory = stats.PopularityCategory(m.PopularityScore)

	if err := u.Data.PutItemMetrics(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// refreshUserProfile 从评分快照整体重算一位读者的画像。
func (u *Updater) refreshUserProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	ratings, err := u.Data.GetUserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := core.NewUserProfile(userID)
	p.RatingCount = len(ratings)

	var explicit []float64
	for _, r := range ratings {
		if r > 0 {
			explicit = append(explicit, r)
		}
	}
	p.ExplicitCount = len(explicit)
	p.MeanRating = stats.Mean(explicit)
	p.StdRating = stats.Std(explicit)
	p.ReaderLevel = stats.ReaderLevel(p.ExplicitCount)
	if p.ExplicitCount > 0 {
		p.CriticProfile = stats.CriticProfile(p.MeanRating, p.StdRating)
	}

	liked := u.likedBooks(ratings)
	if err := u.fillPreferences(ctx, p, liked); err != nil {
		return nil, err
	}

	limit := u.FavoriteLimit
	if limit <= 0 {
		limit = defaultFavoriteLimit
	}
	if len(liked) > limit {
		p.FavoriteBooks = liked[:limit]
	} else {
		p.FavoriteBooks = liked
	}
	p.UpdateTime = time.Now()

	if err := u.Data.PutUserProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// likedBooks 返回评分达到喜爱阈值的 ISBN，评分降序、同分 ISBN 升序。
func (u *Updater) likedBooks(ratings map[string]float64) []string {
	threshold := u.LikeThreshold
	if threshold <= 0 {
		threshold = defaultLikeThreshold
	}
	var liked []string
	for isbn, r := range ratings {
		if r >= threshold {
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

// fillPreferences 从喜爱书目提取偏好列表与价格/年代区间。
// 不在目录里的书跳过，不算失败。
func (u *Updater) fillPreferences(ctx context.Context, p *core.UserProfile, liked []string) error {
	genreCount := make(map[string]int)
	authorCount := make(map[string]int)
	publisherCount := make(map[string]int)

	for _, isbn := range liked {
		book, err := u.Data.GetBook(ctx, isbn)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return err
		}
		for _, g := range book.Genres {
			genreCount[g]++
		}
		for _, a := range book.Authors {
			authorCount[a]++
		}
		if book.Publisher != "" {
			publisherCount[book.Publisher]++
		}
		if book.Price > 0 {
			if !p.PriceRange.OK || book.Price < p.PriceRange.Min {
				p.PriceRange.Min = book.Price
			}
			if !p.PriceRange.OK || book.Price > p.PriceRange.Max {
				p.PriceRange.Max = book.Price
			}
			p.PriceRange.OK = true
		}
		if book.Year > 0 {
			if !p.YearRange.OK || book.Year < p.YearRange.Min {
				p.YearRange.Min = book.Year
			}
			if !p.YearRange.OK || book.Year > p.YearRange.Max {
				p.YearRange.Max = book.Year
			}
			p.YearRange.OK = true
		}
	}

	p.PreferredGenres = topByCount(genreCount, maxGenres)
	p.PreferredAuthors = topByCount(authorCount, maxAuthors)
	p.PreferredPublishers = topByCount(publisherCount, maxPublishers)
	return nil
}

// topByCount 按计数降序取前 limit 个，同计数按名称升序。
func topByCount(counts map[string]int, limit int) []string {
	if len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}
