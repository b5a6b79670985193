// Package factor 实现评分矩阵的低秩分解（SVD 风格的隐因子模型）。
//
// 核心思想：把稀疏的 用户×书目 评分矩阵分解为两组稠密低维向量，
// 用户向量与书目向量的点积近似该用户对该书的预测评分。
//
// 算法流程：
//  1. 评分摊平为稠密矩阵 R（0 = 未观测）
//  2. 幂迭代 + 正交化逐个抽取右奇异向量，得到书目因子矩阵 V (nItems×k)
//  3. 用户因子 = R·V（把交互行投影到书目因子空间）
//  4. 预测 = userFactor · itemFactor
//
// 工程特征：
//   - 确定性：固定初始向量与迭代次数，无随机源，同一输入必得同一模型
//   - 重拟合是整体重建，不支持增量更新；新模型整体替换旧模型
package factor

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/bookrec/core"
)

// Scored 是 (书, 预测分) 对。
type Scored struct {
	ISBN  string
	Score float64
}

// Model 是隐因子模型。字段在 Fit 后整体生效，Fit 前调用 Predict/Recommend
// 会返回 MODEL_NOT_FITTED。
type Model struct {
	// Factors 是期望的因子数上限，实际生效秩为
	// min(Factors, min(nUsers, nItems)-1)，至少为 1。
	Factors int

	// Iterations 每个因子的幂迭代轮数
	Iterations int

	userIndex map[string]int
	itemIndex map[string]int
	users     []string
	items     []string

	userFactors [][]float64 // nUsers × k
	itemFactors [][]float64 // nItems × k
	rank        int
	fitted      bool
}

const (
	defaultFactors    = 100
	defaultIterations = 50
)

// Fit 在给定的评分快照上整体重建模型。
// ratings 是 map[userID]map[isbn]rating；空输入返回 INSUFFICIENT_DATA。
// 0 分 implicit 记录视为未观测。
func (m *Model) Fit(ctx context.Context, ratings map[string]map[string]float64) error {
	users, items := collectIDs(ratings)
	if len(users) == 0 || len(items) == 0 {
		return core.NewInsufficientDataError(core.ModuleFactor,
			"factor: cannot fit on an empty interaction matrix")
	}

	factors := m.Factors
	if factors <= 0 {
		factors = defaultFactors
	}
	iterations := m.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}

	rank := min(len(users), len(items)) - 1
	if rank < 1 {
		rank = 1
	}
	if rank > factors {
		rank = factors
	}

	userIndex := make(map[string]int, len(users))
	for i, id := range users {
		userIndex[id] = i
	}
	itemIndex := make(map[string]int, len(items))
	for i, id := range items {
		itemIndex[id] = i
	}

	// 摊平为稠密矩阵，0 = 未观测
	matrix := make([][]float64, len(users))
	for i := range matrix {
		matrix[i] = make([]float64, len(items))
	}
	for userID, row := range ratings {
		u := userIndex[userID]
		for isbn, r := range row {
			if r > 0 {
				matrix[u][itemIndex[isbn]] = r
			}
		}
	}

	itemFactors, err := truncatedSVD(ctx, matrix, rank, iterations)
	if err != nil {
		return err
	}
	rank = len(itemFactors[0]) // 退化矩阵可能提前收敛到更低的秩

	// 用户因子 = R · V
	userFactors := make([][]float64, len(users))
	for u := range matrix {
		vec := make([]float64, rank)
		for i, r := range matrix[u] {
			if r == 0 {
				continue
			}
			for f := 0; f < rank; f++ {
				vec[f] += r * itemFactors[i][f]
			}
		}
		userFactors[u] = vec
	}

	m.userIndex = userIndex
	m.itemIndex = itemIndex
	m.users = users
	m.items = items
	m.userFactors = userFactors
	m.itemFactors = itemFactors
	m.rank = rank
	m.fitted = true
	return nil
}

// Fitted 返回模型是否已拟合。
func (m *Model) Fitted() bool {
	return m != nil && m.fitted
}

// Rank 返回实际生效的因子数。
func (m *Model) Rank() int {
	return m.rank
}

// Predict 返回 (用户, 书) 的预测评分（因子向量点积）。
// 未拟合返回 MODEL_NOT_FITTED；用户或书不在拟合矩阵中返回 NOT_FOUND。
func (m *Model) Predict(userID, isbn string) (float64, error) {
	if !m.Fitted() {
		return 0, core.NewModelNotFittedError(core.ModuleFactor,
			"factor: predict called before fit")
	}
	u, ok := m.userIndex[userID]
	if !ok {
		return 0, core.NewNotFoundError(core.ModuleFactor,
			fmt.Sprintf("factor: user %q not in fitted matrix", userID))
	}
	i, ok := m.itemIndex[isbn]
	if !ok {
		return 0, core.NewNotFoundError(core.ModuleFactor,
			fmt.Sprintf("factor: item %q not in fitted matrix", isbn))
	}
	return dot(m.userFactors[u], m.itemFactors[i]), nil
}

// Recommend 对候选书打分并返回前 k 个，按分数降序、同分 ISBN 升序。
// candidates 为空时在全部已拟合书目上打分。用户不在矩阵中（冷启动）时
// 返回空列表，由调用方兜底。
func (m *Model) Recommend(userID string, candidates []string, k int, exclude map[string]bool) ([]Scored, error) {
	if !m.Fitted() {
		return nil, core.NewModelNotFittedError(core.ModuleFactor,
			"factor: recommend called before fit")
	}
	u, ok := m.userIndex[userID]
	if !ok {
		return nil, nil
	}
	if k <= 0 {
		return nil, nil
	}

	pool := candidates
	if len(pool) == 0 {
		pool = m.items
	}

	scored := make([]Scored, 0, len(pool))
	for _, isbn := range pool {
		if exclude[isbn] {
			continue
		}
		i, ok := m.itemIndex[isbn]
		if !ok {
			continue
		}
		scored = append(scored, Scored{ISBN: isbn, Score: dot(m.userFactors[u], m.itemFactors[i])})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ISBN < scored[j].ISBN
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// UserVector 返回用户因子向量副本。
func (m *Model) UserVector(userID string) ([]float64, bool) {
	if !m.Fitted() {
		return nil, false
	}
	u, ok := m.userIndex[userID]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(m.userFactors[u]))
	copy(out, m.userFactors[u])
	return out, true
}

// ItemVector 返回书目因子向量副本。
func (m *Model) ItemVector(isbn string) ([]float64, bool) {
	if !m.Fitted() {
		return nil, false
	}
	i, ok := m.itemIndex[isbn]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(m.itemFactors[i]))
	copy(out, m.itemFactors[i])
	return out, true
}

// ItemVectors 返回全部书目因子向量（ISBN → 向量），用于导出到在线存储。
func (m *Model) ItemVectors() map[string][]float64 {
	if !m.Fitted() {
		return nil
	}
	out := make(map[string][]float64, len(m.items))
	for i, isbn := range m.items {
		vec := make([]float64, len(m.itemFactors[i]))
		copy(vec, m.itemFactors[i])
		out[isbn] = vec
	}
	return out
}

// collectIDs 汇总并排序用户/书目 ID，保证索引确定性（map 遍历无序）。
func collectIDs(ratings map[string]map[string]float64) (users, items []string) {
	itemSeen := make(map[string]struct{})
	for userID, row := range ratings {
		explicit := false
		for isbn, r := range row {
			if r > 0 {
				itemSeen[isbn] = struct{}{}
				explicit = true
			}
		}
		if explicit {
			users = append(users, userID)
		}
	}
	for isbn := range itemSeen {
		items = append(items, isbn)
	}
	sort.Strings(users)
	sort.Strings(items)
	return users, items
}

// truncatedSVD 用幂迭代抽取前 rank 个右奇异向量（nItems×rank）。
// 每个因子：对 RᵀR 幂迭代，并对已抽取因子正交化；奇异值趋零时提前停止。
func truncatedSVD(ctx context.Context, matrix [][]float64, rank, iterations int) ([][]float64, error) {
	nItems := len(matrix[0])
	basis := make([][]float64, 0, rank)

	for f := 0; f < rank; f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v := seedVector(nItems, f)
		orthogonalize(v, basis)
		if normalize(v) == 0 {
			break
		}

		for it := 0; it < iterations; it++ {
			w := applyGram(matrix, v)
			orthogonalize(w, basis)
			if normalize(w) == 0 {
				break
			}
			v = w
		}

		// σ = ||R·v||；σ≈0 说明剩余矩阵已无能量
		if sigma := vectorNorm(multiply(matrix, v)); sigma < 1e-12 {
			break
		}
		basis = append(basis, v)
	}

	if len(basis) == 0 {
		return nil, core.NewInsufficientDataError(core.ModuleFactor,
			"factor: interaction matrix has no signal to factorize")
	}

	// 列主序 basis → 行主序 itemFactors
	itemFactors := make([][]float64, nItems)
	for i := 0; i < nItems; i++ {
		vec := make([]float64, len(basis))
		for f := range basis {
			vec[f] = basis[f][i]
		}
		itemFactors[i] = vec
	}
	return itemFactors, nil
}

// seedVector 生成确定性的初始向量；因子间使用不同相位避免初始向量重合。
func seedVector(n, factor int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1 + 0.1*math.Sin(float64(i*31+factor*17+1))
	}
	return v
}

// applyGram 计算 Rᵀ(R·v)，避免显式构造 RᵀR。
func applyGram(matrix [][]float64, v []float64) []float64 {
	rv := multiply(matrix, v)
	out := make([]float64, len(v))
	for u, row := range matrix {
		if rv[u] == 0 {
			continue
		}
		for i, x := range row {
			if x != 0 {
				out[i] += x * rv[u]
			}
		}
	}
	return out
}

func multiply(matrix [][]float64, v []float64) []float64 {
	out := make([]float64, len(matrix))
	for u, row := range matrix {
		var s float64
		for i, x := range row {
			if x != 0 {
				s += x * v[i]
			}
		}
		out[u] = s
	}
	return out
}

func orthogonalize(v []float64, basis [][]float64) {
	for _, b := range basis {
		proj := dot(v, b)
		for i := range v {
			v[i] -= proj * b[i]
		}
	}
}

func normalize(v []float64) float64 {
	n := vectorNorm(v)
	if n < 1e-12 {
		return 0
	}
	for i := range v {
		v[i] /= n
	}
	return n
}

func vectorNorm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}
