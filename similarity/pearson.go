// Package similarity 实现用户-用户邻居发现：基于共同评分书目的
// Pearson 相关系数，产出按相关性排序的邻居列表。
package similarity

import "math"

// Pearson 计算两个评分向量在共同 key 上的 Pearson 相关系数（均值中心化）。
//
// 返回值：
//   - r：相关系数，范围 [-1, 1]
//   - n：共同评分的书目数
//   - ok：是否可计算。共同书目少于 2 本，或任一侧方差为 0（分母为 0）时
//     返回 false，调用方必须跳过该候选，保证输出中永远不会出现 NaN。
//
// 对称性：Pearson(a, b) 与 Pearson(b, a) 结果一致。
func Pearson(a, b map[string]float64) (r float64, n int, ok bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, false
	}
	// 遍历较小的一侧
	if len(b) < len(a) {
		a, b = b, a
	}

	var xs, ys []float64
	for key, av := range a {
		if bv, found := b[key]; found {
			xs = append(xs, av)
			ys = append(ys, bv)
		}
	}
	n = len(xs)
	if n < 2 {
		return 0, n, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, n, false
	}

	return cov / math.Sqrt(varX*varY), n, true
}
