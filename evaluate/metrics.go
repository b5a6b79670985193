// Package evaluate 提供离线排序质量指标。
//
// 全部是 (推荐列表, 相关集合, k) 上的纯函数：空相关集、k 超出列表长度、
// k 非正都返回 0.0，不报错也不产生 NaN。相关性按二元处理（在集合内=1）。
package evaluate

import "math"

// Result 打包四个指标，便于一次评估多路输出。
type Result struct {
	Precision        float64
	Recall           float64
	AveragePrecision float64
	NDCG             float64
}

// Evaluate 对一条推荐列表计算全部指标。
func Evaluate(recommended []string, relevant map[string]bool, k int) Result {
	return Result{
		Precision:        PrecisionAtK(recommended, relevant, k),
		Recall:           RecallAtK(recommended, relevant, k),
		AveragePrecision: AveragePrecisionAtK(recommended, relevant, k),
		NDCG:             NDCGAtK(recommended, relevant, k),
	}
}

// PrecisionAtK 前 k 条中相关条目的占比，分母固定为 k。
func PrecisionAtK(recommended []string, relevant map[string]bool, k int) float64 {
	if k <= 0 {
		return 0
	}
	var hits int
	for _, id := range topK(recommended, k) {
		if relevant[id] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// RecallAtK 前 k 条命中的相关条目占全部相关条目的比例。
func RecallAtK(recommended []string, relevant map[string]bool, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	var hits int
	for _, id := range topK(recommended, k) {
		if relevant[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// AveragePrecisionAtK 命中位置处 precision 的均值，分母为全部相关条目数。
func AveragePrecisionAtK(recommended []string, relevant map[string]bool, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	var score float64
	var hits int
	for i, id := range topK(recommended, k) {
		if relevant[id] {
			hits++
			score += float64(hits) / float64(i+1)
		}
	}
	return score / float64(len(relevant))
}

// NDCGAtK 二元相关性的归一化折损累计增益：
// DCG 折损按 1/log2(rank+1)，理想排序取同一窗口内相关条目前置的排列。
// 窗口内没有相关条目时返回 0。
func NDCGAtK(recommended []string, relevant map[string]bool, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	window := topK(recommended, k)

	var dcg float64
	var hits int
	for i, id := range window {
		if relevant[id] {
			dcg += 1 / math.Log2(float64(i)+2)
			hits++
		}
	}
	if hits == 0 {
		return 0
	}

	var idcg float64
	for i := 0; i < hits; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}
	return dcg / idcg
}

func topK(recommended []string, k int) []string {
	if k < len(recommended) {
		return recommended[:k]
	}
	return recommended
}
