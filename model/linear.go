package model

import (
	"encoding/json"
	"os"
)

// LinearModel 把分信号得分线性加权成最终排序分。
//
// 预测：score = Bias + sum(Weight_i * Feature_i)
//
// 权重通常来自离线拟合（对历史评分回归各信号得分），通过 JSON 文件下发：
//
//	{"bias": 0.1, "weights": {"content_score": 0.4, "collaborative_score": 0.3}}
//
// 未配置权重的特征不参与求和。
type LinearModel struct {
	Bias    float64
	Weights map[string]float64
}

// LoadLinearModel 从 JSON 文件加载权重。
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Bias    float64            `json:"bias"`
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &LinearModel{Bias: raw.Bias, Weights: raw.Weights}, nil
}

func (m *LinearModel) Name() string { return "linear" }

func (m *LinearModel) Predict(features map[string]float64) (float64, error) {
	score := m.Bias
	for k, v := range features {
		if w, ok := m.Weights[k]; ok {
			score += w * v
		}
	}
	return score, nil
}
