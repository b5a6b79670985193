package coldstart

import (
	"context"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/rushteam/bookrec/core"
)

type stubStore struct {
	users   map[string]map[string]float64
	attrs   map[string]*core.UserAttributes
	metrics map[string]*core.ItemMetrics
}

func (s *stubStore) GetUserRatings(_ context.Context, userID string) (map[string]float64, error) {
	return s.users[userID], nil
}

func (s *stubStore) GetItemRatings(_ context.Context, isbn string) (map[string]float64, error) {
	out := make(map[string]float64)
	for userID, ratings := range s.users {
		if r, ok := ratings[isbn]; ok {
			out[userID] = r
		}
	}
	return out, nil
}

func (s *stubStore) GetAllUsers(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *stubStore) GetAllItems(_ context.Context) ([]string, error) { return nil, nil }

func (s *stubStore) GetUserAttributes(_ context.Context, userID string) (*core.UserAttributes, error) {
	a, ok := s.attrs[userID]
	if !ok {
		return nil, core.NewNotFoundError("store", "user "+userID)
	}
	return a, nil
}

func (s *stubStore) GetUsersByCohort(_ context.Context, ageBracket, gender string) ([]string, error) {
	var out []string
	for id, a := range s.attrs {
		if a.AgeBracket == ageBracket && a.Gender == gender {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *stubStore) GetRatedUsers(_ context.Context) ([]string, error) {
	var out []string
	for id, ratings := range s.users {
		if len(ratings) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *stubStore) GetItemMetrics(_ context.Context, isbn string) (*core.ItemMetrics, error) {
	m, ok := s.metrics[isbn]
	if !ok {
		return nil, core.NewNotFoundError("store", "metrics "+isbn)
	}
	return m, nil
}

func (s *stubStore) GetUserProfile(_ context.Context, userID string) (*core.UserProfile, error) {
	return nil, core.NewNotFoundError("store", "profile "+userID)
}

// fixture 构造一个冷用户 newbie 与 5 位同龄同性别的活跃读者。
// hit 获得全体同伴高分；partial 只有 3 人背书；seen 是 newbie 已读书。
func fixture() *stubStore {
	ya := func(id string) *core.UserAttributes {
		return &core.UserAttributes{UserID: id, AgeBracket: "young-adult", Gender: "female"}
	}
	return &stubStore{
		users: map[string]map[string]float64{
			"newbie": {"seen": 8},
			"p1":     {"hit": 8, "hit2": 7, "partial": 9, "seen": 9, "meh": 5},
			"p2":     {"hit": 9, "hit2": 7, "partial": 9, "seen": 8, "meh": 5},
			"p3":     {"hit": 10, "hit2": 7, "partial": 9, "seen": 9, "meh": 5},
			"p4":     {"hit": 7, "hit2": 7, "seen": 10, "meh": 5},
			"p5":     {"hit": 8, "hit2": 7, "seen": 7, "meh": 5},
		},
		attrs: map[string]*core.UserAttributes{
			"newbie": ya("newbie"),
			"p1":     ya("p1"),
			"p2":     ya("p2"),
			"p3":     ya("p3"),
			"p4":     ya("p4"),
			"p5":     ya("p5"),
		},
		metrics: map[string]*core.ItemMetrics{
			"hit": {ISBN: "hit", Count: 120, QualityScore: 8.0},
		},
	}
}

func TestIsCold(t *testing.T) {
	st := fixture()
	heavy := make(map[string]float64)
	for i := 0; i < 20; i++ {
		heavy[string(rune('a'+i))] = 8
	}
	st.users["veteran"] = heavy

	r := &Recommender{Users: st, Ratings: st, Metrics: st}

	cold, err := r.IsCold(context.Background(), "newbie")
	if err != nil || !cold {
		t.Fatalf("newbie cold = %v, err = %v, want true", cold, err)
	}
	// 恰好到达阈值不再算冷用户
	cold, err = r.IsCold(context.Background(), "veteran")
	if err != nil || cold {
		t.Fatalf("veteran cold = %v, err = %v, want false", cold, err)
	}
}

func TestRecommendCohortConsensus(t *testing.T) {
	st := fixture()
	r := &Recommender{Users: st, Ratings: st, Metrics: st}

	items, err := r.Recommend(context.Background(), "newbie", 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (hit, hit2): %+v", len(items), items)
	}

	// hit: 5 人均分 8.4，共识 42 分 + 质量 8.0×10×0.3
	if items[0].ID != "hit" {
		t.Fatalf("top item = %s, want hit", items[0].ID)
	}
	if math.Abs(items[0].Score-66) > 1e-9 {
		t.Fatalf("hit score = %v, want 66", items[0].Score)
	}
	if got := items[0].GetFeature("cohort_count"); got != 5 {
		t.Fatalf("cohort_count = %v, want 5", got)
	}
	if lbl := items[0].Labels["reason"]; !strings.Contains(lbl.Value, "5 readers") {
		t.Fatalf("unexpected reason %q", lbl.Value)
	}

	// hit2 没有全局指标，纯共识 5×7=35
	if items[1].ID != "hit2" || math.Abs(items[1].Score-35) > 1e-9 {
		t.Fatalf("second item = %s score %v, want hit2 / 35", items[1].ID, items[1].Score)
	}

	// 已读的 seen 与共识不足的 partial 都不得出现
	for _, it := range items {
		if it.ID == "seen" || it.ID == "partial" || it.ID == "meh" {
			t.Fatalf("unexpected item %s in results", it.ID)
		}
	}
}

func TestRecommendTruncates(t *testing.T) {
	st := fixture()
	r := &Recommender{Users: st, Ratings: st, Metrics: st}
	items, err := r.Recommend(context.Background(), "newbie", 1)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(items) != 1 || items[0].ID != "hit" {
		t.Fatalf("k=1 should return only hit, got %+v", items)
	}
}

func TestRecommendInvalidK(t *testing.T) {
	st := fixture()
	r := &Recommender{Users: st, Ratings: st, Metrics: st}
	if _, err := r.Recommend(context.Background(), "newbie", 0); !core.IsConfiguration(err) {
		t.Fatalf("k=0 should be a configuration error, got %v", err)
	}
}

func TestRecommendUnknownUser(t *testing.T) {
	st := fixture()
	r := &Recommender{Users: st, Ratings: st, Metrics: st}
	if _, err := r.Recommend(context.Background(), "nobody", 5); !core.IsNotFound(err) {
		t.Fatalf("unknown user should be NOT_FOUND, got %v", err)
	}
}

func TestRecommendEmptyCohort(t *testing.T) {
	st := &stubStore{
		users: map[string]map[string]float64{},
		attrs: map[string]*core.UserAttributes{
			"loner": {UserID: "loner", AgeBracket: "young-adult", Gender: "male"},
		},
	}
	r := &Recommender{Users: st, Ratings: st, Metrics: st}
	items, err := r.Recommend(context.Background(), "loner", 5)
	if err != nil {
		t.Fatalf("empty cohort should not error, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %+v", items)
	}
}

func TestRandomFallbackDeterministic(t *testing.T) {
	st := fixture()
	// 无人口学属性走随机补齐路径
	st.attrs["ghost"] = &core.UserAttributes{UserID: "ghost"}
	st.users["ghost"] = nil

	r := &Recommender{Users: st, Ratings: st, Metrics: st}

	first, err := r.Recommend(context.Background(), "ghost", 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("random fallback should still surface consensus books")
	}
	second, err := r.Recommend(context.Background(), "ghost", 5)
	if err != nil {
		t.Fatalf("Recommend again: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("non-deterministic result sizes: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Score != second[i].Score {
			t.Fatalf("non-deterministic result at %d: %s/%v vs %s/%v",
				i, first[i].ID, first[i].Score, second[i].ID, second[i].Score)
		}
	}
}
