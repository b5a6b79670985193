package content

import (
	"strings"
	"testing"

	"github.com/rushteam/bookrec/core"
)

func fantasyReader() *core.UserProfile {
	return &core.UserProfile{
		UserID:           "u1",
		PreferredGenres:  []string{"Fantasy", "Mystery"},
		PreferredAuthors: []string{"Ursula K. Le Guin", "Agatha Christie", "Terry Pratchett", "Ken Liu"},
		PriceRange:       core.PriceRange{Min: 10, Max: 20, OK: true},
	}
}

func TestScoreNoMatch(t *testing.T) {
	s := &Scorer{}
	book := &core.Book{
		ISBN:    "b1",
		Title:   "Cookbook",
		Authors: []string{"Nobody"},
		Genres:  []string{"Cooking"},
		Price:   99,
	}
	score, reasons := s.Score(fantasyReader(), book, nil)
	if score != 0 {
		t.Fatalf("no rule fired but score = %v", score)
	}
	if len(reasons) != 0 {
		t.Fatalf("no rule fired but reasons = %v", reasons)
	}
}

func TestScoreGenreMatch(t *testing.T) {
	s := &Scorer{}
	single := &core.Book{ISBN: "b1", Genres: []string{"Fantasy"}, Price: 99}
	double := &core.Book{ISBN: "b2", Genres: []string{"Fantasy", "Mystery"}, Price: 99}

	scoreSingle, reasons := s.Score(fantasyReader(), single, nil)
	if scoreSingle != 10 {
		t.Fatalf("single genre match = %v, want 10", scoreSingle)
	}
	if len(reasons) != 1 || !strings.HasPrefix(reasons[0], "Genre: ") {
		t.Fatalf("unexpected reasons %v", reasons)
	}

	scoreDouble, _ := s.Score(fantasyReader(), double, nil)
	if scoreDouble != 14 {
		t.Fatalf("double genre match = %v, want 10+4", scoreDouble)
	}
}

func TestScoreAuthorPointsAndCap(t *testing.T) {
	s := &Scorer{}
	profile := fantasyReader()

	topAuthor := &core.Book{ISBN: "b1", Authors: []string{"Agatha Christie"}, Price: 99}
	score, reasons := s.Score(profile, topAuthor, nil)
	if score != 8 {
		t.Fatalf("top-3 author = %v, want 8", score)
	}
	if len(reasons) != 1 || reasons[0] != "Author: Agatha Christie" {
		t.Fatalf("unexpected reasons %v", reasons)
	}

	tailAuthor := &core.Book{ISBN: "b2", Authors: []string{"Ken Liu"}, Price: 99}
	if score, _ := s.Score(profile, tailAuthor, nil); score != 5 {
		t.Fatalf("rank-4 author = %v, want 5", score)
	}

	// 三位头部作者合著 8*3=24 会触发 16 封顶
	collab := &core.Book{
		ISBN:    "b3",
		Authors: []string{"Ursula K. Le Guin", "Agatha Christie", "Terry Pratchett"},
		Price:   99,
	}
	if score, _ := s.Score(profile, collab, nil); score != 16 {
		t.Fatalf("author score should cap at 16, got %v", score)
	}
}

func TestScorePriceTiers(t *testing.T) {
	s := &Scorer{}
	profile := &core.UserProfile{
		PriceRange: core.PriceRange{Min: 10, Max: 20, OK: true},
	}
	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{"inside range", 15, 15},
		{"tight", 24, 15},  // 距离 4
		{"near", 28, 8},    // 距离 8
		{"loose", 38, 3},   // 距离 18
		{"too far", 60, 0}, // 距离 40
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := &core.Book{ISBN: "p", Genres: []string{"None"}, Price: tt.price}
			got, _ := s.Score(profile, book, nil)
			if got != tt.want {
				t.Fatalf("price %v: score = %v, want %v", tt.price, got, tt.want)
			}
		})
	}

	// 无价格区间数据时不加也不减
	noRange := &core.UserProfile{}
	book := &core.Book{ISBN: "p", Price: 15}
	if got, _ := s.Score(noRange, book, nil); got != 0 {
		t.Fatalf("no price range should not score, got %v", got)
	}
}

func TestScoreQualityAndCountBonuses(t *testing.T) {
	s := &Scorer{}
	book := &core.Book{ISBN: "b1", Genres: []string{"Other"}, Price: 99}

	highQuality := &core.ItemMetrics{Count: 100, QualityScore: 8.5}
	score, reasons := s.Score(nil, book, highQuality)
	// 2*8.5 + min(5, 2*log10(100)) = 17 + 4
	if score != 21 {
		t.Fatalf("quality+count = %v, want 21", score)
	}
	if len(reasons) != 2 {
		t.Fatalf("expected 2 reasons, got %v", reasons)
	}

	// 质量分低于阈值只拿样本量加成
	mediocre := &core.ItemMetrics{Count: 100, QualityScore: 6.0}
	if score, _ := s.Score(nil, book, mediocre); score != 4 {
		t.Fatalf("mediocre quality = %v, want count boost 4 only", score)
	}

	// 样本不足没有 count 加成
	fresh := &core.ItemMetrics{Count: 3, QualityScore: 9.0}
	if score, _ := s.Score(nil, book, fresh); score != 18 {
		t.Fatalf("fresh book = %v, want 18 (quality only)", score)
	}
}

func TestScoreCombined(t *testing.T) {
	s := &Scorer{}
	book := &core.Book{
		ISBN:    "b1",
		Title:   "A Wizard of Earthsea",
		Authors: []string{"Ursula K. Le Guin"},
		Genres:  []string{"Fantasy"},
		Price:   12,
	}
	metrics := &core.ItemMetrics{Count: 1000, QualityScore: 9.0}

	score, reasons := s.Score(fantasyReader(), book, metrics)
	// genre 10 + author 8 + price 15 + quality 18 + count min(5,6)=5
	want := 10.0 + 8 + 15 + 18 + 5
	if score != want {
		t.Fatalf("combined score = %v, want %v", score, want)
	}
	if len(reasons) != 5 {
		t.Fatalf("expected 5 reasons, got %d: %v", len(reasons), reasons)
	}
}
