package factor

import (
	"context"
	"testing"

	"github.com/rushteam/bookrec/core"
)

// blockRatings 构造两组口味相反的用户：A/B 喜欢 b1/b2，C/D 喜欢 b3/b4。
func blockRatings() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"userA": {"b1": 9, "b2": 8, "b3": 1, "b4": 2},
		"userB": {"b1": 8, "b2": 9, "b3": 2, "b4": 1},
		"userC": {"b1": 2, "b2": 1, "b3": 9, "b4": 8},
		"userD": {"b1": 1, "b2": 2, "b3": 8, "b4": 9},
	}
}

func TestFitEmptyFails(t *testing.T) {
	m := &Model{}
	err := m.Fit(context.Background(), nil)
	if err == nil {
		t.Fatal("fit on empty interactions must fail")
	}
	if !core.IsInsufficientData(err) {
		t.Fatalf("expected INSUFFICIENT_DATA, got %v", err)
	}
	if m.Fitted() {
		t.Fatal("model must not be marked fitted after failed fit")
	}

	// 全 implicit（0 分）同样视为空矩阵
	err = m.Fit(context.Background(), map[string]map[string]float64{
		"u1": {"b1": 0, "b2": 0},
	})
	if !core.IsInsufficientData(err) {
		t.Fatalf("all-implicit matrix should fail with INSUFFICIENT_DATA, got %v", err)
	}
}

func TestPredictBeforeFit(t *testing.T) {
	m := &Model{}
	if _, err := m.Predict("userA", "b1"); !core.IsModelNotFitted(err) {
		t.Fatalf("expected MODEL_NOT_FITTED, got %v", err)
	}
	if _, err := m.Recommend("userA", nil, 5, nil); !core.IsModelNotFitted(err) {
		t.Fatalf("expected MODEL_NOT_FITTED from recommend, got %v", err)
	}
}

func TestRankCap(t *testing.T) {
	m := &Model{Factors: 100}
	if err := m.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit: %v", err)
	}
	// 4 用户 × 4 书 → 秩上限 min(4,4)-1 = 3
	if m.Rank() > 3 {
		t.Fatalf("rank %d exceeds min(users, items)-1", m.Rank())
	}
	if m.Rank() < 1 {
		t.Fatalf("rank must be at least 1, got %d", m.Rank())
	}
}

func TestPredictSeparatesTasteBlocks(t *testing.T) {
	m := &Model{Factors: 2}
	if err := m.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit: %v", err)
	}

	liked, err := m.Predict("userA", "b1")
	if err != nil {
		t.Fatalf("predict liked: %v", err)
	}
	disliked, err := m.Predict("userA", "b3")
	if err != nil {
		t.Fatalf("predict disliked: %v", err)
	}
	if liked <= disliked {
		t.Fatalf("expected liked item score %v > disliked %v", liked, disliked)
	}
}

func TestPredictUnknownPair(t *testing.T) {
	m := &Model{Factors: 2}
	if err := m.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, err := m.Predict("ghost", "b1"); !core.IsNotFound(err) {
		t.Fatalf("unknown user should be NOT_FOUND, got %v", err)
	}
	if _, err := m.Predict("userA", "zzz"); !core.IsNotFound(err) {
		t.Fatalf("unknown item should be NOT_FOUND, got %v", err)
	}
}

func TestRecommendColdUserEmpty(t *testing.T) {
	m := &Model{Factors: 2}
	if err := m.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit: %v", err)
	}
	out, err := m.Recommend("ghost", nil, 5, nil)
	if err != nil {
		t.Fatalf("recommend for cold user should not error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("cold user must get empty list, got %+v", out)
	}
}

func TestRecommendExcludesAndTruncates(t *testing.T) {
	m := &Model{Factors: 2}
	if err := m.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit: %v", err)
	}

	out, err := m.Recommend("userA", nil, 2, map[string]bool{"b1": true})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	for _, s := range out {
		if s.ISBN == "b1" {
			t.Fatal("excluded item must not appear in recommendations")
		}
	}
	if out[0].Score < out[1].Score {
		t.Fatalf("results not sorted descending: %+v", out)
	}
	// userA 的最佳未排除候选应来自自己喜欢的块
	if out[0].ISBN != "b2" {
		t.Fatalf("expected b2 on top for userA, got %+v", out)
	}
}

func TestDeterministicRefit(t *testing.T) {
	a := &Model{Factors: 3}
	b := &Model{Factors: 3}
	if err := a.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit a: %v", err)
	}
	if err := b.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit b: %v", err)
	}

	outA, _ := a.Recommend("userC", nil, 4, nil)
	outB, _ := b.Recommend("userC", nil, 4, nil)
	if len(outA) != len(outB) {
		t.Fatalf("result lengths differ: %d vs %d", len(outA), len(outB))
	}
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("models diverged at %d: %+v vs %+v", i, outA[i], outB[i])
		}
	}
}

func TestRefitReplacesModel(t *testing.T) {
	m := &Model{Factors: 2}
	if err := m.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("first fit: %v", err)
	}
	if _, ok := m.ItemVector("b1"); !ok {
		t.Fatal("b1 should be in the first model")
	}

	second := map[string]map[string]float64{
		"userX": {"n1": 8, "n2": 3},
		"userY": {"n1": 7, "n2": 4},
	}
	if err := m.Fit(context.Background(), second); err != nil {
		t.Fatalf("refit: %v", err)
	}
	if _, ok := m.ItemVector("b1"); ok {
		t.Fatal("refit must fully replace the old item set")
	}
	if _, ok := m.ItemVector("n1"); !ok {
		t.Fatal("refit lost the new item set")
	}
}

func TestItemVectorsExport(t *testing.T) {
	m := &Model{Factors: 2}
	if err := m.Fit(context.Background(), blockRatings()); err != nil {
		t.Fatalf("fit: %v", err)
	}
	vectors := m.ItemVectors()
	if len(vectors) != 4 {
		t.Fatalf("expected 4 item vectors, got %d", len(vectors))
	}
	for isbn, vec := range vectors {
		if len(vec) != m.Rank() {
			t.Fatalf("vector %q has dim %d, want %d", isbn, len(vec), m.Rank())
		}
	}
	// 导出的是副本，修改不影响模型
	vectors["b1"][0] = 12345
	again := m.ItemVectors()
	if again["b1"][0] == 12345 {
		t.Fatal("ItemVectors must return copies")
	}
}
