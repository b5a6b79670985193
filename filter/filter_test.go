package filter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/utils"
)

// memStore 是测试用的最小 core.Store 实现。
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Name() string { return "mem" }

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ ...int) error {
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func (s *memStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *memStore) BatchSet(_ context.Context, kvs map[string][]byte, _ ...int) error {
	for k, v := range kvs {
		s.data[k] = v
	}
	return nil
}

func (s *memStore) Close() error { return nil }

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func itemIDs(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestRatedExcludesInteractions(t *testing.T) {
	rctx := &core.RecommendContext{
		UserID: "u1",
		// 0 分 implicit 记录同样算已读
		Ratings: map[string]float64{"isbn-read": 8, "isbn-skimmed": 0},
	}
	items := []*core.Item{
		core.NewItem("isbn-read"),
		core.NewItem("isbn-skimmed"),
		core.NewItem("isbn-new"),
	}

	n := &Rated{}
	out, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "isbn-new" {
		t.Errorf("ids = %v, want [isbn-new]", itemIDs(out))
	}
}

func TestRatedIncludeRatedBypass(t *testing.T) {
	rctx := &core.RecommendContext{
		UserID:       "u1",
		IncludeRated: true,
		Ratings:      map[string]float64{"isbn-read": 8},
	}
	items := []*core.Item{core.NewItem("isbn-read"), core.NewItem("isbn-new")}

	n := &Rated{}
	out, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("ids = %v, want both kept", itemIDs(out))
	}
}

func TestRatedNoHistory(t *testing.T) {
	n := &Rated{}
	items := []*core.Item{core.NewItem("isbn-a")}

	out, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 {
		t.Errorf("len(out) = %d, want 1", len(out))
	}
}

func TestNodeAppliesFiltersAndLabels(t *testing.T) {
	n := &Node{Filters: []Filter{
		&Blacklist{ISBNs: []string{"isbn-banned"}},
	}}
	banned := core.NewItem("isbn-banned")
	items := []*core.Item{banned, core.NewItem("isbn-ok")}

	out, err := n.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "isbn-ok" {
		t.Errorf("ids = %v, want [isbn-ok]", itemIDs(out))
	}
	if lbl, ok := banned.Labels["filtered"]; !ok || lbl.Source != "filter.blacklist" {
		t.Errorf("filtered label = %+v", banned.Labels["filtered"])
	}
}

func TestBlacklistFromStore(t *testing.T) {
	st := newMemStore()
	st.data["blacklist:current"] = mustJSON(t, []string{"isbn-banned"})
	f := NewBlacklist(nil, NewStoreAdapter(st), "blacklist:current")

	got, err := f.ShouldFilter(context.Background(), nil, core.NewItem("isbn-banned"))
	if err != nil || !got {
		t.Errorf("ShouldFilter(banned) = (%v, %v), want (true, nil)", got, err)
	}
	got, err = f.ShouldFilter(context.Background(), nil, core.NewItem("isbn-ok"))
	if err != nil || got {
		t.Errorf("ShouldFilter(ok) = (%v, %v), want (false, nil)", got, err)
	}
}

func TestUserBlock(t *testing.T) {
	st := newMemStore()
	st.data["reader:block:u1"] = mustJSON(t, []string{"isbn-hated"})
	f := NewUserBlock(NewStoreAdapter(st), "")
	rctx := &core.RecommendContext{UserID: "u1"}

	got, _ := f.ShouldFilter(context.Background(), rctx, core.NewItem("isbn-hated"))
	if !got {
		t.Error("blocked isbn should be filtered")
	}
	got, _ = f.ShouldFilter(context.Background(), rctx, core.NewItem("isbn-fine"))
	if got {
		t.Error("unblocked isbn should pass")
	}
}

func TestExposedList(t *testing.T) {
	st := newMemStore()
	st.data["reader:exposed:u1"] = mustJSON(t, []string{"isbn-seen"})
	f := NewExposed(NewStoreAdapter(st), "", 3600, 0)
	rctx := &core.RecommendContext{UserID: "u1"}

	got, _ := f.ShouldFilter(context.Background(), rctx, core.NewItem("isbn-seen"))
	if !got {
		t.Error("exposed isbn should be filtered")
	}
	got, _ = f.ShouldFilter(context.Background(), rctx, core.NewItem("isbn-unseen"))
	if got {
		t.Error("unseen isbn should pass")
	}
}

// fakeBloom 按 ISBN 固定应答，忽略按天分片的 key。
type fakeBloom struct {
	hits map[string]bool
}

func (b *fakeBloom) CheckInBloomFilter(_ context.Context, _ string, isbn string) (bool, error) {
	return b.hits[isbn], nil
}

func TestExposedBloomFilter(t *testing.T) {
	st := newMemStore()
	adapter := NewStoreAdapterWithBloom(st, &fakeBloom{hits: map[string]bool{"isbn-old": true}})
	f := NewExposed(adapter, "", 0, 7)
	rctx := &core.RecommendContext{UserID: "u1"}

	got, _ := f.ShouldFilter(context.Background(), rctx, core.NewItem("isbn-old"))
	if !got {
		t.Error("bloom hit should be treated as exposed")
	}
	got, _ = f.ShouldFilter(context.Background(), rctx, core.NewItem("isbn-new"))
	if got {
		t.Error("bloom miss should pass")
	}
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`label.recall_source == "popular" && item.score < 0.5`)
	if err != nil {
		t.Fatalf("NewExprFilter() error = %v", err)
	}

	lowPopular := core.NewItem("isbn-a")
	lowPopular.Score = 0.2
	lowPopular.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})

	highPopular := core.NewItem("isbn-b")
	highPopular.Score = 0.8
	highPopular.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})

	if got, err := f.ShouldFilter(context.Background(), nil, lowPopular); err != nil || !got {
		t.Errorf("low popular = (%v, %v), want (true, nil)", got, err)
	}
	if got, err := f.ShouldFilter(context.Background(), nil, highPopular); err != nil || got {
		t.Errorf("high popular = (%v, %v), want (false, nil)", got, err)
	}
}

func TestExprFilterReaderLevel(t *testing.T) {
	f, err := NewExprFilter(`rctx.reader_level == "new_reader" && item.features.popularity_score < 3.0`)
	if err != nil {
		t.Fatalf("NewExprFilter() error = %v", err)
	}
	rctx := &core.RecommendContext{
		UserID: "u1",
		User:   &core.UserProfile{ReaderLevel: "new_reader"},
	}
	obscure := core.NewItem("isbn-a")
	obscure.SetFeature("popularity_score", 1.5)

	if got, err := f.ShouldFilter(context.Background(), rctx, obscure); err != nil || !got {
		t.Errorf("ShouldFilter() = (%v, %v), want (true, nil)", got, err)
	}
}

func TestExprFilterInvalid(t *testing.T) {
	if _, err := NewExprFilter(""); !core.IsConfiguration(err) {
		t.Errorf("empty expr error = %v, want INVALID_CONFIG", err)
	}
	if _, err := NewExprFilter("item.score >"); !core.IsConfiguration(err) {
		t.Errorf("broken expr error = %v, want INVALID_CONFIG", err)
	}
}
