package core

// ItemMetrics 是一本书的派生统计指标快照。
//
// 由外部更新进程（profile.Updater）在每次新交互后整体重算、整体覆写，
// 引擎侧只读。Count/Total/Average/Std 只统计显式评分。
type ItemMetrics struct {
	ISBN  string
	Count int     // 显式评分条数
	Total float64 // 显式评分之和

	Average float64 // Total / Count，Count 为 0 时为 0
	Std     float64 // 显式评分标准差

	// QualityScore 是向全局先验收缩的贝叶斯平滑均分，
	// 低样本书目不会因少量高分而虚高。
	QualityScore    float64
	QualityCategory string // unrated / low / mid / high / very_high

	// RecentCount 是最近窗口内的交互条数（由 ItemSeq 窗口决定）。
	RecentCount        int
	PopularityScore    float64
	PopularityCategory string // unknown / low / medium / high
}
