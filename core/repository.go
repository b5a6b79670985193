package core

import "context"

// 仓储接口统一定义在领域层（core），由基础设施层（store）实现，
// 通过构造函数注入引擎。连接的创建与关闭由调用方负责，引擎不管理生命周期。

// RatingStore 是交互仓储的读接口（(user, book, rating) 三元组）。
//
// 使用场景：
//   - 邻居发现：用户-书目交互数据
//   - 混合引擎：已读集合排除、协同信号
//
// 实现：
//   - store.BookStoreAdapter 实现此接口（基于 core.Store）
type RatingStore interface {
	// GetUserRatings 返回用户的全部交互 map[isbn]rating（含 0 分 implicit 记录）
	GetUserRatings(ctx context.Context, userID string) (map[string]float64, error)

	// GetItemRatings 返回一本书收到的全部交互 map[userID]rating
	GetItemRatings(ctx context.Context, isbn string) (map[string]float64, error)

	// GetAllUsers 返回有交互记录的用户 ID 列表
	GetAllUsers(ctx context.Context) ([]string, error)

	// GetAllItems 返回有交互记录的书目 ISBN 列表
	GetAllItems(ctx context.Context) ([]string, error)
}

// CatalogStore 是书目属性仓储的读接口。
type CatalogStore interface {
	// GetBook 返回书目属性；不存在时返回 NOT_FOUND 领域错误
	GetBook(ctx context.Context, isbn string) (*Book, error)

	// GetBooksByGenre 返回某类型下的书目 ISBN（上限 limit，limit <= 0 表示不限制）
	GetBooksByGenre(ctx context.Context, genre string, limit int) ([]string, error)
}

// MetricsStore 是派生指标仓储的读接口（引擎侧只读，写入属于外部更新进程）。
type MetricsStore interface {
	// GetItemMetrics 返回书目统计指标；不存在时返回 NOT_FOUND 领域错误
	GetItemMetrics(ctx context.Context, isbn string) (*ItemMetrics, error)

	// GetUserProfile 返回用户行为画像；不存在时返回 NOT_FOUND 领域错误
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)
}

// UserStore 是用户静态属性仓储的读接口。
type UserStore interface {
	// GetUserAttributes 返回用户人口学属性；不存在时返回 NOT_FOUND 领域错误
	GetUserAttributes(ctx context.Context, userID string) (*UserAttributes, error)

	// GetUsersByCohort 返回同年龄段同性别的用户 ID 列表
	GetUsersByCohort(ctx context.Context, ageBracket, gender string) ([]string, error)

	// GetRatedUsers 返回有评分历史的用户 ID 列表（冷启动随机兜底用）
	GetRatedUsers(ctx context.Context) ([]string, error)
}

// InteractionLog 是交互序列的读接口，为趋势计算提供按逻辑时钟排序的明细。
type InteractionLog interface {
	// GetItemInteractions 返回一本书的全部交互，按 ItemSeq 升序
	GetItemInteractions(ctx context.Context, isbn string) ([]Interaction, error)

	// RecentInteractions 返回 ItemSeq >= sinceSeq 的全部交互（近期窗口查询）
	RecentInteractions(ctx context.Context, sinceSeq int64) ([]Interaction, error)

	// MaxItemSeq 返回书目时钟域当前最大序号（0 表示尚无交互）
	MaxItemSeq(ctx context.Context) (int64, error)
}
