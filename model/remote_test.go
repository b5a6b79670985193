package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scoringServer(t *testing.T, scores []float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FeaturesList []map[string]float64 `json:"features_list"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.FeaturesList) == 0 {
			t.Error("request carries no features")
		}
		json.NewEncoder(w).Encode(map[string]any{"scores": scores})
	}))
}

func TestRemotePredictBatch(t *testing.T) {
	srv := scoringServer(t, []float64{0.9, 0.3})
	defer srv.Close()

	m := NewRemoteModel("gbdt", srv.URL, 0)
	if m.Name() != "gbdt" {
		t.Errorf("Name() = %s", m.Name())
	}

	scores, err := m.PredictBatch([]map[string]float64{
		{"content_score": 7.5},
		{"content_score": 2.0},
	})
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.9 || scores[1] != 0.3 {
		t.Errorf("scores = %v, want [0.9 0.3]", scores)
	}
}

func TestRemotePredictSingle(t *testing.T) {
	srv := scoringServer(t, []float64{0.42})
	defer srv.Close()

	m := NewRemoteModel("gbdt", srv.URL, 0)
	got, err := m.Predict(map[string]float64{"content_score": 1})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got != 0.42 {
		t.Errorf("Predict() = %v, want 0.42", got)
	}
}

func TestRemoteScoreCountMismatch(t *testing.T) {
	srv := scoringServer(t, []float64{0.9})
	defer srv.Close()

	m := NewRemoteModel("gbdt", srv.URL, 0)
	_, err := m.PredictBatch([]map[string]float64{{"a": 1}, {"b": 2}})
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Errorf("PredictBatch() error = %v, want count mismatch", err)
	}
}

func TestRemoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewRemoteModel("gbdt", srv.URL, 0)
	_, err := m.PredictBatch([]map[string]float64{{"a": 1}})
	if err == nil || !strings.Contains(err.Error(), "status=500") {
		t.Errorf("PredictBatch() error = %v, want status error", err)
	}
}

func TestRemoteEmptyBatch(t *testing.T) {
	m := NewRemoteModel("gbdt", "http://unreachable.invalid", 0)
	scores, err := m.PredictBatch(nil)
	if err != nil {
		t.Fatalf("PredictBatch(nil) error = %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("scores = %v, want empty", scores)
	}
}
