// Package stats 提供派生指标的纯函数计算：平滑质量分、热度分、分类标签、
// 读者分层与评分者画像。所有函数无副作用、确定性，只依赖聚合计数。
package stats

import "math"

// 质量分先验（0-10 分制）：少样本书目的均分向全局先验收缩，
// 避免一两条高分把一本书顶到榜首。
const (
	PriorWeight = 5.0
	PriorMean   = 5.0
)

// 分类标签常量
const (
	QualityUnrated  = "unrated"
	QualityLow      = "low"
	QualityMid      = "mid"
	QualityHigh     = "high"
	QualityVeryHigh = "very_high"

	RatingNotRated = "not_rated"

	PopularityUnknown = "unknown"
	PopularityLow     = "low"
	PopularityMedium  = "medium"
	PopularityHigh    = "high"

	ReaderImplicitOnly = "implicit_only"
	ReaderNew          = "new_reader"
	ReaderCasual       = "casual_reader"
	ReaderActive       = "active_reader"
	ReaderPower        = "power_reader"

	CriticConsistent = "consistent"
	CriticCritical   = "critical"
	CriticGenerous   = "generous"
	CriticBalanced   = "balanced"
)

// Average 返回显式评分均值；count 为 0 时返回 0。
func Average(total float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return total / float64(count)
}

// QualityScore 返回贝叶斯平滑质量分：
//
//	(total + PriorWeight*PriorMean) / (count + PriorWeight)
//
// count 为 0 时恰好等于 PriorMean；count > 0 时严格落在均值与先验之间。
func QualityScore(total float64, count int) float64 {
	return QualityScoreWithPrior(total, count, PriorWeight, PriorMean)
}

// QualityScoreWithPrior 是可调先验版本的质量分。
func QualityScoreWithPrior(total float64, count int, priorWeight, priorMean float64) float64 {
	if count < 0 {
		count = 0
	}
	return (total + priorWeight*priorMean) / (float64(count) + priorWeight)
}

// QualityCategory 按固定阈值把质量分映射为分类：
// 0→unrated，(0,3]→low，(3,6]→mid，(6,8]→high，(8,10]→very_high。
func QualityCategory(score float64) string {
	switch {
	case score <= 0:
		return QualityUnrated
	case score <= 3:
		return QualityLow
	case score <= 6:
		return QualityMid
	case score <= 8:
		return QualityHigh
	default:
		return QualityVeryHigh
	}
}

// RatingCategory 把单条评分映射为分桶（0 是 implicit 哨兵，单独成桶）。
func RatingCategory(rating float64) string {
	switch {
	case rating <= 0:
		return RatingNotRated
	case rating <= 3:
		return QualityLow
	case rating <= 6:
		return QualityMid
	case rating <= 8:
		return QualityHigh
	default:
		return QualityVeryHigh
	}
}

// PopularityScore 返回热度分：最近窗口交互数乘以对数阻尼的总量因子。
//
//	recentCount * (1 + log10(1 + totalCount))
//
// 近期无交互的书热度为 0；历史总量只作对数阻尼的放大因子，
// 不会让老书靠存量霸榜。
func PopularityScore(recentCount, totalCount int) float64 {
	if recentCount <= 0 {
		return 0
	}
	if totalCount < 0 {
		totalCount = 0
	}
	return float64(recentCount) * (1 + math.Log10(1+float64(totalCount)))
}

// PopularityCategory 按固定阈值把热度分映射为分类：
// 0→unknown，(0,10]→low，(10,50]→medium，>50→high。
func PopularityCategory(score float64) string {
	switch {
	case score <= 0:
		return PopularityUnknown
	case score <= 10:
		return PopularityLow
	case score <= 50:
		return PopularityMedium
	default:
		return PopularityHigh
	}
}

// ReaderLevel 按显式评分条数分层读者。
func ReaderLevel(explicitCount int) string {
	switch {
	case explicitCount <= 0:
		return ReaderImplicitOnly
	case explicitCount < 10:
		return ReaderNew
	case explicitCount < 50:
		return ReaderCasual
	case explicitCount < 200:
		return ReaderActive
	default:
		return ReaderPower
	}
}

// CriticProfile 按显式评分的均值与标准差给评分者打标：
// 方差小→consistent，均值低→critical，均值高→generous，其余 balanced。
func CriticProfile(mean, std float64) string {
	switch {
	case std < 1.5:
		return CriticConsistent
	case mean < 5:
		return CriticCritical
	case mean > 7:
		return CriticGenerous
	default:
		return CriticBalanced
	}
}

// AgeBracket 把年龄映射为粗粒度年龄段；非正数视为未知。
func AgeBracket(age int) string {
	switch {
	case age <= 0:
		return "unknown"
	case age < 12:
		return "child"
	case age < 18:
		return "juvenile"
	case age < 30:
		return "young-adult"
	case age < 40:
		return "30-40"
	case age < 60:
		return "40-60"
	default:
		return "60+"
	}
}

// Mean 返回均值；空切片返回 0。
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std 返回总体标准差；少于两个样本返回 0。
func Std(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
