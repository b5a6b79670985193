package core

import (
	"strings"
	"time"
)

// UserAttributes 是用户的静态人口学属性（注册/画像侧，区别于行为派生的 UserProfile）。
type UserAttributes struct {
	UserID     string
	AgeBracket string // child / juvenile / young-adult / 30-40 / 40-60 / 60+ / unknown
	Gender     string // male / female / unknown
	Location   Location
}

// Location 是粗粒度地理位置；经纬度可缺省（HasCoords 为 false）。
type Location struct {
	City    string
	State   string
	Country string

	Latitude  float64
	Longitude float64
	HasCoords bool
}

// ParseLocation 解析 "city, state, country" 形式的位置串（字段可缺省）。
func ParseLocation(raw string) Location {
	var loc Location
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch i {
		case 0:
			loc.City = p
		case 1:
			loc.State = p
		case 2:
			loc.Country = p
		}
	}
	return loc
}

// UserProfile 是用户的行为派生画像。
//
// 一句话定义：用户画像 = 推荐 Pipeline 的"全局上下文 + 特征源 + 决策信号"
//
// 它不是某一个 Node，而是：
//   - 被所有 Node 共享
//   - 驱动 Recall / Rank / ReRank
//   - 由外部更新进程（profile.Updater）在新交互落库后整体重算
//
// 维度            作用
// 阅读统计        冷启动判定 / 质量对齐
// 偏好列表        内容信号 / 召回核心
// 价格与年代区间  内容信号加分项
// 读者分层        解释与兼容性报告
type UserProfile struct {
	UserID string

	// 阅读统计（只统计显式评分）
	MeanRating    float64
	StdRating     float64
	RatingCount   int // 全部交互条数（含 implicit）
	ExplicitCount int // 显式评分条数

	// ReaderLevel：implicit_only / new_reader / casual_reader / active_reader / power_reader
	ReaderLevel string
	// CriticProfile：consistent / critical / generous / balanced
	CriticProfile string

	// 偏好列表，按喜爱程度降序（来自评分 >= 喜爱阈值的书目）
	PreferredGenres     []string
	PreferredAuthors    []string
	PreferredPublishers []string

	// FavoriteBooks 是评分最高的若干本书（ISBN）
	FavoriteBooks []string

	PriceRange PriceRange
	YearRange  YearRange

	// 元数据
	UpdateTime time.Time
}

// PriceRange 是用户偏好的价格区间（来自其喜爱书目的价格分布）。
type PriceRange struct {
	Min float64
	Max float64
	OK  bool // 是否有足够数据
}

// YearRange 是用户偏好的出版年代区间。
type YearRange struct {
	Min int
	Max int
	OK  bool
}

// NewUserProfile 创建一个空画像。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:     userID,
		UpdateTime: time.Now(),
	}
}

// LikesGenre 检查某类型是否在用户偏好列表中（大小写不敏感）。
func (p *UserProfile) LikesGenre(genre string) bool {
	if p == nil {
		return false
	}
	for _, g := range p.PreferredGenres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// AuthorRank 返回作者在偏好列表中的位置（0 起），不在列表时返回 -1。
func (p *UserProfile) AuthorRank(author string) int {
	if p == nil {
		return -1
	}
	for i, a := range p.PreferredAuthors {
		if strings.EqualFold(a, author) {
			return i
		}
	}
	return -1
}

// PriceDistance 返回价格到偏好区间的距离；区间内为 0，无区间数据时返回 -1。
func (p *UserProfile) PriceDistance(price float64) float64 {
	if p == nil || !p.PriceRange.OK {
		return -1
	}
	if price < p.PriceRange.Min {
		return p.PriceRange.Min - price
	}
	if price > p.PriceRange.Max {
		return price - p.PriceRange.Max
	}
	return 0
}
