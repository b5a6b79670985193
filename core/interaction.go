package core

import "context"

// Interaction 是一条 (用户, 书, 评分) 交互记录。
//
// 评分使用 0-10 的显式刻度，0 表示 implicit（加入书架但未打分），
// 所有均值/方差/相关性统计只使用显式评分（Rating > 0）。
//
// UserSeq / ItemSeq 是逻辑时钟值：分别在用户维度与书目维度单调递增，
// 为 recency / 趋势计算提供与墙钟无关的全序。同一 (UserID, ISBN) 至多
// 存在一条记录，重复写入视为更新而非第二次事件。
type Interaction struct {
	UserID   string
	ISBN     string
	Rating   float64
	UserSeq  int64
	ItemSeq  int64
	Category string
}

// IsExplicit 判断评分是否为显式评分（0 为 implicit 哨兵值）。
func (in Interaction) IsExplicit() bool {
	return in.Rating > 0
}

// SeqClock 是逻辑时钟接口：为新交互分配单调递增的序号。
//
// 设计原则：
//   - 序号只增不减，并发写入下仍是全序（实现方负责原子性）
//   - 用户序号与书目序号是两个独立的时钟域
//
// 实现：
//   - store.StoreSeqClock 基于 core.Store 实现
type SeqClock interface {
	// NextUserSeq 返回该用户的下一个序号
	NextUserSeq(ctx context.Context, userID string) (int64, error)

	// NextItemSeq 返回该书的下一个序号
	NextItemSeq(ctx context.Context, isbn string) (int64, error)
}
