package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLinearPredict(t *testing.T) {
	m := &LinearModel{
		Bias: 0.5,
		Weights: map[string]float64{
			"content_score":       2,
			"collaborative_score": -1,
		},
	}
	got, err := m.Predict(map[string]float64{
		"content_score":       3,
		"collaborative_score": 4,
		"unknown_score":       100, // 未配置权重，忽略
	})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if want := 2.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("Predict() = %v, want %v", got, want)
	}
}

func TestLoadLinearModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linear.json")
	raw := `{"bias": 0.1, "weights": {"content_score": 0.4, "popularity_score": 0.6}}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := LoadLinearModel(path)
	if err != nil {
		t.Fatalf("LoadLinearModel() error = %v", err)
	}
	if m.Bias != 0.1 || m.Weights["content_score"] != 0.4 || m.Weights["popularity_score"] != 0.6 {
		t.Errorf("loaded model = %+v", m)
	}
}

func TestLoadLinearModelErrors(t *testing.T) {
	if _, err := LoadLinearModel(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLinearModel(path); err == nil {
		t.Error("broken json should fail")
	}
}
