package explain

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/similarity"
	"github.com/rushteam/bookrec/stats"
)

// stubStore 在内存 map 上实现解释器依赖的全部仓储读接口。
type stubStore struct {
	users    map[string]map[string]float64 // userID -> isbn -> rating
	books    map[string]*core.Book
	metrics  map[string]*core.ItemMetrics
	profiles map[string]*core.UserProfile
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

func (s *stubStore) GetAllItems(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, ratings := range s.users {
		for isbn := range ratings {
			seen[isbn] = true
		}
	}
	items := make([]string, 0, len(seen))
	for isbn := range seen {
		items = append(items, isbn)
	}
	sort.Strings(items)
	return items, nil
}

func (s *stubStore) GetBook(_ context.Context, isbn string) (*core.Book, error) {
	b, ok := s.books[isbn]
	if !ok {
		return nil, core.NewNotFoundError("store", "book "+isbn)
	}
	return b, nil
}

func (s *stubStore) GetBooksByGenre(_ context.Context, genre string, limit int) ([]string, error) {
	var out []string
	for isbn, b := range s.books {
		if b.HasGenre(genre) {
			out = append(out, isbn)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
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
	p, ok := s.profiles[userID]
	if !ok {
		return nil, core.NewNotFoundError("store", "profile "+userID)
	}
	return p, nil
}

// fixture 构造一组固定的用户与书目：
//   - alice 喜欢 5 本 Fantasy（其中 2 本 Ken Liu），bob/carol/dave 口味与她完全一致
//     且都给目标书打了高分（邻居共识）
//   - brief 只评过 2 本书，够不成邻居
//   - fresh 有画像但没有任何评分
//   - fan 读过 6 本 Robin Hobb（作者加分封顶用例）
func fixture() *stubStore {
	tasteOfAlice := map[string]float64{
		"bk-f1": 9, "bk-f2": 8, "bk-f3": 7, "bk-f4": 7, "bk-f5": 7,
	}
	withTarget := func(r float64) map[string]float64 {
		out := make(map[string]float64, len(tasteOfAlice)+1)
		for k, v := range tasteOfAlice {
			out[k] = v
		}
		out["bk-target"] = r
		return out
	}
	hobb := map[string]float64{
		"bk-h1": 8, "bk-h2": 8, "bk-h3": 8, "bk-h4": 8, "bk-h5": 8, "bk-h6": 8,
	}

	return &stubStore{
		users: map[string]map[string]float64{
			"alice": tasteOfAlice,
			"bob":   withTarget(9),
			"carol": withTarget(8),
			"dave":  withTarget(10),
			"brief": {"bk-f1": 9, "bk-f3": 7},
			"fan":   hobb,
		},
		books: map[string]*core.Book{
			"bk-target":   {ISBN: "bk-target", Title: "The Last Dragon", Authors: []string{"Ken Liu"}, Genres: []string{"Fantasy"}, Price: 15},
			"bk-mid":      {ISBN: "bk-mid", Title: "Middle Road", Authors: []string{"Ken Liu"}, Genres: []string{"Fantasy"}, Price: 12},
			"bk-quiet":    {ISBN: "bk-quiet", Title: "Quiet Verse", Authors: []string{"Mary Oliver"}, Genres: []string{"Poetry"}, Price: 9},
			"bk-prolific": {ISBN: "bk-prolific", Title: "Assassin's Homecoming", Authors: []string{"Robin Hobb"}, Genres: []string{"Epic"}, Price: 30},
			"bk-near":     {ISBN: "bk-near", Title: "Dusty Trail", Authors: []string{"N. O. Body"}, Genres: []string{"Western"}, Price: 27},
			"bk-pricey":   {ISBN: "bk-pricey", Title: "Gilded Pages", Authors: []string{"N. O. Body"}, Genres: []string{"Western"}, Price: 34},
			"bk-f1":       {ISBN: "bk-f1", Title: "Fantasy One", Authors: []string{"Ken Liu"}, Genres: []string{"Fantasy"}, Price: 12},
			"bk-f2":       {ISBN: "bk-f2", Title: "Fantasy Two", Authors: []string{"Ken Liu"}, Genres: []string{"Fantasy"}, Price: 14},
			"bk-f3":       {ISBN: "bk-f3", Title: "Fantasy Three", Authors: []string{"Jo March"}, Genres: []string{"Fantasy"}, Price: 11},
			"bk-f4":       {ISBN: "bk-f4", Title: "Fantasy Four", Authors: []string{"Anne Shirley"}, Genres: []string{"Fantasy"}, Price: 13},
			"bk-f5":       {ISBN: "bk-f5", Title: "Fantasy Five", Authors: []string{"Meg Murry"}, Genres: []string{"Fantasy"}, Price: 18},
			"bk-h1":       {ISBN: "bk-h1", Title: "Epic One", Authors: []string{"Robin Hobb"}, Genres: []string{"Epic"}, Price: 20},
			"bk-h2":       {ISBN: "bk-h2", Title: "Epic Two", Authors: []string{"Robin Hobb"}, Genres: []string{"Epic"}, Price: 20},
			"bk-h3":       {ISBN: "bk-h3", Title: "Epic Three", Authors: []string{"Robin Hobb"}, Genres: []string{"Epic"}, Price: 20},
			"bk-h4":       {ISBN: "bk-h4", Title: "Epic Four", Authors: []string{"Robin Hobb"}, Genres: []string{"Epic"}, Price: 20},
			"bk-h5":       {ISBN: "bk-h5", Title: "Epic Five", Authors: []string{"Robin Hobb"}, Genres: []string{"Epic"}, Price: 20},
			"bk-h6":       {ISBN: "bk-h6", Title: "Epic Six", Authors: []string{"Robin Hobb"}, Genres: []string{"Epic"}, Price: 20},
		},
		metrics: map[string]*core.ItemMetrics{
			"bk-target": {ISBN: "bk-target", Count: 40, Average: 8.2, QualityScore: 8.1, QualityCategory: stats.QualityVeryHigh, PopularityScore: 6.0},
			"bk-mid":    {ISBN: "bk-mid", Count: 12, Average: 7.2, QualityScore: 6.8, QualityCategory: stats.QualityHigh, PopularityScore: 3.0},
		},
		profiles: map[string]*core.UserProfile{
			"alice": {
				UserID:          "alice",
				PreferredGenres: []string{"Fantasy", "Mystery"},
				PriceRange:      core.PriceRange{Min: 10, Max: 20, OK: true},
				CriticProfile:   stats.CriticCritical,
				ReaderLevel:     stats.ReaderPower,
			},
			"brief": {
				UserID:          "brief",
				PreferredGenres: []string{"Fantasy"},
				PriceRange:      core.PriceRange{Min: 5, Max: 9.5, OK: true},
				CriticProfile:   stats.CriticBalanced,
				ReaderLevel:     stats.ReaderCasual,
			},
			"fresh": {UserID: "fresh"},
			"fan":   {UserID: "fan", PreferredGenres: []string{"Epic"}},
		},
	}
}

func newGenerator(st *stubStore) *Generator {
	return &Generator{
		Ratings: st,
		Catalog: st,
		Metrics: st,
		Finder:  &similarity.Finder{Ratings: st},
	}
}

func TestExplainStrongSignals(t *testing.T) {
	g := newGenerator(fixture())

	exp, err := g.Explain(context.Background(), "alice", "bk-target")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if exp.ISBN != "bk-target" || exp.Title != "The Last Dragon" {
		t.Fatalf("Explain() header = (%s, %s)", exp.ISBN, exp.Title)
	}

	if len(exp.Primary) != 4 {
		t.Fatalf("len(Primary) = %d, want 4: %+v", len(exp.Primary), exp.Primary)
	}
	wantTypes := []string{"genre", "author", "collaborative", "quality"}
	for i, want := range wantTypes {
		if exp.Primary[i].Type != want {
			t.Errorf("Primary[%d].Type = %s, want %s", i, exp.Primary[i].Type, want)
		}
		if exp.Primary[i].Strength != StrengthStrong {
			t.Errorf("Primary[%d].Strength = %s", i, exp.Primary[i].Strength)
		}
	}

	wantTexts := []string{
		"This book is in the Fantasy genre, which you've enjoyed in 5 other books",
		"You've enjoyed 2 other books by Ken Liu (average rating: 8.5/10)",
		"3 readers with similar taste rated this book highly (average: 9.0/10)",
		"Highly rated book (8.2/10 from 40 readers, quality score: 8.1)",
	}
	for i, want := range wantTexts {
		if exp.Primary[i].Text != want {
			t.Errorf("Primary[%d].Text = %q, want %q", i, exp.Primary[i].Text, want)
		}
	}

	if len(exp.Secondary) != 1 || exp.Secondary[0].Type != "similarity" {
		t.Fatalf("Secondary = %+v, want one similarity reason", exp.Secondary)
	}
	wantSimilar := `Similar to books you loved like "Fantasy One", "Fantasy Two"`
	if exp.Secondary[0].Text != wantSimilar {
		t.Errorf("similarity text = %q, want %q", exp.Secondary[0].Text, wantSimilar)
	}

	wantSummary := `We recommend "The Last Dragon" because: this book is in the fantasy genre, ` +
		`which you've enjoyed in 5 other books, and you've enjoyed 2 other books by ken liu (average rating: 8.5/10).`
	if exp.Summary != wantSummary {
		t.Errorf("Summary = %q\nwant      %q", exp.Summary, wantSummary)
	}
}

func TestExplainModerateReasons(t *testing.T) {
	g := newGenerator(fixture())

	exp, err := g.Explain(context.Background(), "brief", "bk-mid")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}

	// 只有作者规则升到 strong，其余都是 moderate
	if len(exp.Primary) != 1 || exp.Primary[0].Type != "author" {
		t.Fatalf("Primary = %+v, want single author reason", exp.Primary)
	}
	if len(exp.Secondary) != 3 {
		t.Fatalf("len(Secondary) = %d, want 3: %+v", len(exp.Secondary), exp.Secondary)
	}
	wantSecondary := []string{"genre", "quality", "similarity"}
	for i, want := range wantSecondary {
		if exp.Secondary[i].Type != want {
			t.Errorf("Secondary[%d].Type = %s, want %s", i, exp.Secondary[i].Type, want)
		}
	}
	if !strings.Contains(exp.Secondary[1].Text, "Well-rated book (7.2/10 from 12 readers)") {
		t.Errorf("quality text = %q", exp.Secondary[1].Text)
	}

	// 一条强理由时总结里补一条次理由
	wantSummary := `We recommend "Middle Road" because: you've enjoyed 1 other books by ken liu (average rating: 9.0/10); ` +
		`additionally, this book is in the fantasy genre, which you've enjoyed in 2 other books.`
	if exp.Summary != wantSummary {
		t.Errorf("Summary = %q\nwant      %q", exp.Summary, wantSummary)
	}
}

func TestExplainPopularityFallback(t *testing.T) {
	g := newGenerator(fixture())

	exp, err := g.Explain(context.Background(), "fresh", "bk-quiet")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if len(exp.Primary) != 0 || len(exp.Secondary) != 0 {
		t.Fatalf("reasons = %+v / %+v, want none", exp.Primary, exp.Secondary)
	}
	want := `We recommend "Quiet Verse" based on general popularity.`
	if exp.Summary != want {
		t.Errorf("Summary = %q, want %q", exp.Summary, want)
	}
}

func TestExplainNotFound(t *testing.T) {
	g := newGenerator(fixture())

	if _, err := g.Explain(context.Background(), "alice", "bk-ghost"); !core.IsNotFound(err) {
		t.Errorf("unknown book error = %v, want NOT_FOUND", err)
	}
	if _, err := g.Explain(context.Background(), "nobody", "bk-target"); !core.IsNotFound(err) {
		t.Errorf("unknown user error = %v, want NOT_FOUND", err)
	}
}

func TestCompatibilityExcellentMatch(t *testing.T) {
	g := newGenerator(fixture())

	rep, err := g.Compatibility(context.Background(), "alice", "bk-target")
	if err != nil {
		t.Fatalf("Compatibility() error = %v", err)
	}

	wantScores := map[string]float64{
		"genre":      20, // 命中 1 个偏好类型
		"author":     10, // 读过 2 本 Ken Liu
		"price":      15, // 15 落在 10-20 区间内
		"quality":    30, // critical 对齐 20 + power reader 高质量 10
		"popularity": 10, // power reader 且热度 > 5
	}
	if len(rep.Components) != 5 {
		t.Fatalf("len(Components) = %d, want 5", len(rep.Components))
	}
	for _, c := range rep.Components {
		if want, ok := wantScores[c.Name]; !ok || c.Score != want {
			t.Errorf("component %s score = %.0f, want %.0f", c.Name, c.Score, wantScores[c.Name])
		}
	}
	if rep.Total != 85 {
		t.Errorf("Total = %.0f, want 85", rep.Total)
	}
	if rep.Level != "Excellent Match" {
		t.Errorf("Level = %s, want Excellent Match", rep.Level)
	}

	quality := rep.Components[3]
	if len(quality.Reasons) != 2 {
		t.Errorf("quality reasons = %v, want 2", quality.Reasons)
	}
	price := rep.Components[2]
	if len(price.Reasons) != 1 || !strings.Contains(price.Reasons[0], "matches your usual range ($10.00-$20.00)") {
		t.Errorf("price reasons = %v", price.Reasons)
	}
}

func TestCompatibilityAuthorCap(t *testing.T) {
	g := newGenerator(fixture())

	rep, err := g.Compatibility(context.Background(), "fan", "bk-prolific")
	if err != nil {
		t.Fatalf("Compatibility() error = %v", err)
	}

	author := rep.Components[1]
	if author.Score != 25 {
		t.Errorf("author score = %.0f, want capped 25", author.Score)
	}
	if len(author.Reasons) != 1 || !strings.Contains(author.Reasons[0], "you've read 6 of their books") {
		t.Errorf("author reasons = %v", author.Reasons)
	}

	// 画像无价格区间、书目无指标：后三个维度全部记零
	for _, i := range []int{2, 3, 4} {
		if rep.Components[i].Score != 0 {
			t.Errorf("component %s score = %.0f, want 0", rep.Components[i].Name, rep.Components[i].Score)
		}
	}
	if rep.Total != 45 || rep.Level != "Good Match" {
		t.Errorf("Total/Level = %.0f/%s, want 45/Good Match", rep.Total, rep.Level)
	}
}

func TestCompatibilityPriceTiers(t *testing.T) {
	g := newGenerator(fixture())

	// 27 距离 10-20 区间 7，落入次档
	near, err := g.Compatibility(context.Background(), "alice", "bk-near")
	if err != nil {
		t.Fatalf("Compatibility() error = %v", err)
	}
	if near.Components[2].Score != 8 {
		t.Errorf("near price score = %.0f, want 8", near.Components[2].Score)
	}
	if near.Total != 8 || near.Level != "Poor Match" {
		t.Errorf("near Total/Level = %.0f/%s", near.Total, near.Level)
	}

	// 34 距离区间 14，记零但保留说明
	pricey, err := g.Compatibility(context.Background(), "alice", "bk-pricey")
	if err != nil {
		t.Fatalf("Compatibility() error = %v", err)
	}
	price := pricey.Components[2]
	if price.Score != 0 {
		t.Errorf("pricey price score = %.0f, want 0", price.Score)
	}
	if len(price.Reasons) != 1 || !strings.Contains(price.Reasons[0], "differs from your usual range") {
		t.Errorf("pricey price reasons = %v", price.Reasons)
	}
}

func TestCompatibilityFairMatch(t *testing.T) {
	g := newGenerator(fixture())

	rep, err := g.Compatibility(context.Background(), "brief", "bk-target")
	if err != nil {
		t.Fatalf("Compatibility() error = %v", err)
	}
	// genre 20 + author 5 + price 8；balanced 评分者不对齐 8.2 均分，
	// casual 读者也够不到热度门槛
	if rep.Total != 33 || rep.Level != "Fair Match" {
		t.Errorf("Total/Level = %.0f/%s, want 33/Fair Match", rep.Total, rep.Level)
	}
}

func TestQualityCompatibility(t *testing.T) {
	cases := []struct {
		name    string
		profile *core.UserProfile
		metrics *core.ItemMetrics
		want    float64
	}{
		{
			name:    "critical aligned",
			profile: &core.UserProfile{CriticProfile: stats.CriticCritical},
			metrics: &core.ItemMetrics{Count: 30, Average: 8.5},
			want:    20,
		},
		{
			name:    "critical below bar",
			profile: &core.UserProfile{CriticProfile: stats.CriticCritical},
			metrics: &core.ItemMetrics{Count: 30, Average: 7.9},
			want:    0,
		},
		{
			name:    "generous aligned",
			profile: &core.UserProfile{CriticProfile: stats.CriticGenerous},
			metrics: &core.ItemMetrics{Count: 30, Average: 6.5},
			want:    15,
		},
		{
			name:    "balanced mid range",
			profile: &core.UserProfile{CriticProfile: stats.CriticBalanced},
			metrics: &core.ItemMetrics{Count: 30, Average: 7.0},
			want:    15,
		},
		{
			name:    "balanced above range",
			profile: &core.UserProfile{CriticProfile: stats.CriticBalanced},
			metrics: &core.ItemMetrics{Count: 30, Average: 8.5},
			want:    0,
		},
		{
			name:    "power reader bonus stacks",
			profile: &core.UserProfile{CriticProfile: stats.CriticCritical, ReaderLevel: stats.ReaderPower},
			metrics: &core.ItemMetrics{Count: 30, Average: 9.0, QualityCategory: stats.QualityVeryHigh},
			want:    30,
		},
		{
			name:    "no metrics",
			profile: &core.UserProfile{CriticProfile: stats.CriticCritical},
			metrics: nil,
			want:    0,
		},
		{
			name:    "unrated book",
			profile: &core.UserProfile{CriticProfile: stats.CriticGenerous},
			metrics: &core.ItemMetrics{Count: 0},
			want:    0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := qualityCompatibility(tc.profile, tc.metrics); got.Score != tc.want {
				t.Errorf("qualityCompatibility() = %.0f, want %.0f", got.Score, tc.want)
			}
		})
	}
}

func TestPopularityCompatibility(t *testing.T) {
	cases := []struct {
		name  string
		level string
		pop   float64
		want  float64
	}{
		{"power above bar", stats.ReaderPower, 5.1, 10},
		{"active above bar", stats.ReaderActive, 6, 10},
		{"active at bar", stats.ReaderActive, 5, 0},
		{"casual well known", stats.ReaderCasual, 7.5, 15},
		{"new well known", stats.ReaderNew, 8, 15},
		{"casual below bar", stats.ReaderCasual, 7, 0},
		{"no level", "", 9, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := &core.UserProfile{ReaderLevel: tc.level}
			metrics := &core.ItemMetrics{PopularityScore: tc.pop}
			if got := popularityCompatibility(profile, metrics); got.Score != tc.want {
				t.Errorf("popularityCompatibility() = %.0f, want %.0f", got.Score, tc.want)
			}
		})
	}
	if got := popularityCompatibility(&core.UserProfile{ReaderLevel: stats.ReaderPower}, nil); got.Score != 0 {
		t.Errorf("nil metrics score = %.0f, want 0", got.Score)
	}
}
