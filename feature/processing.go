package feature

import "math"

// Processor 对特征字典做一次变换，返回变换后的字典。
// Enrich 节点在注入完成后按序应用 Processors，供线性模型消费
// 标准化后的特征。实现不应修改入参。
type Processor interface {
	Process(features map[string]float64) map[string]float64
}

// ZScoreNormalizer Z-score 标准化：z = (x - μ) / σ。
// Mean/Std 按特征名配置（通常来自训练侧统计）；未配置或 σ<=0 的特征原样透传。
type ZScoreNormalizer struct {
	Mean map[string]float64
	Std  map[string]float64
}

// NewZScoreNormalizer 创建 Z-score 标准化器
func NewZScoreNormalizer(mean, std map[string]float64) *ZScoreNormalizer {
	return &ZScoreNormalizer{Mean: mean, Std: std}
}

func (n *ZScoreNormalizer) Process(features map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(features))
	for k, v := range features {
		normalized[k] = n.ProcessValue(k, v)
	}
	return normalized
}

// ProcessValue 标准化单个值（按特征名查参数）。
func (n *ZScoreNormalizer) ProcessValue(key string, value float64) float64 {
	std := n.Std[key]
	if std > 0 {
		return (value - n.Mean[key]) / std
	}
	return value
}

// MinMaxNormalizer Min-Max 归一化：x' = (x - min) / (max - min)，缩放到 [0,1]。
// 未配置区间或区间为空的特征原样透传。
type MinMaxNormalizer struct {
	Min map[string]float64
	Max map[string]float64
}

// NewMinMaxNormalizer 创建 Min-Max 归一化器
func NewMinMaxNormalizer(min, max map[string]float64) *MinMaxNormalizer {
	return &MinMaxNormalizer{Min: min, Max: max}
}

func (n *MinMaxNormalizer) Process(features map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(features))
	for k, v := range features {
		normalized[k] = n.ProcessValue(k, v)
	}
	return normalized
}

// ProcessValue 归一化单个值（按特征名查区间）。
func (n *MinMaxNormalizer) ProcessValue(key string, value float64) float64 {
	min := n.Min[key]
	span := n.Max[key] - min
	if span > 0 {
		return (value - min) / span
	}
	return value
}

// LogNormalizer Log 变换：x' = log(1 + x)，压缩长尾计数类特征
// （rating_count、recent_count 等）。负值截断为 0。
//
// Keys 为空时变换全部特征；否则只变换列出的特征。
type LogNormalizer struct {
	Keys []string
}

// NewLogNormalizer 创建 Log 变换器，keys 为空表示作用于全部特征。
func NewLogNormalizer(keys ...string) *LogNormalizer {
	return &LogNormalizer{Keys: keys}
}

func (n *LogNormalizer) Process(features map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(features))
	if len(n.Keys) == 0 {
		for k, v := range features {
			normalized[k] = logValue(v)
		}
		return normalized
	}

	selected := make(map[string]bool, len(n.Keys))
	for _, k := range n.Keys {
		selected[k] = true
	}
	for k, v := range features {
		if selected[k] {
			normalized[k] = logValue(v)
		} else {
			normalized[k] = v
		}
	}
	return normalized
}

func logValue(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Log1p(v)
}
