package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteModel 通过 HTTP 调用外部打分服务，把排序外包给独立部署的
// 模型服务（GBDT、TF Serving 等）。实现 RankModel 与 BatchModel。
type RemoteModel struct {
	name     string
	Endpoint string // 例如 "http://scoring:8080/predict"
	Client   *http.Client
}

const defaultRemoteTimeout = 5 * time.Second

func NewRemoteModel(name, endpoint string, timeout time.Duration) *RemoteModel {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteModel{
		name:     name,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (m *RemoteModel) Name() string { return m.name }

// Predict 单条打分，内部走批量接口。
func (m *RemoteModel) Predict(features map[string]float64) (float64, error) {
	scores, err := m.PredictBatch([]map[string]float64{features})
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("remote model %s: empty response", m.name)
	}
	return scores[0], nil
}

// PredictBatch 批量打分。
//
// 请求格式（JSON）：
//
//	{"features_list": [{"content_score": 7.5, ...}, ...]}
//
// 响应格式（JSON）：
//
//	{"scores": [0.85, 0.72, ...]}
//
// 返回的分数条数必须与请求条数一致，否则视为协议错误。
func (m *RemoteModel) PredictBatch(featuresList []map[string]float64) ([]float64, error) {
	if len(featuresList) == 0 {
		return nil, nil
	}
	if m.Client == nil {
		m.Client = &http.Client{Timeout: defaultRemoteTimeout}
	}

	body, err := json.Marshal(map[string]any{"features_list": featuresList})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", m.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("call %s: status=%d body=%s", m.Endpoint, resp.StatusCode, msg)
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Scores) != len(featuresList) {
		return nil, fmt.Errorf("score count mismatch: sent %d, got %d", len(featuresList), len(result.Scores))
	}
	return result.Scores, nil
}
