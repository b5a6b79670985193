package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/bookrec/core"
)

func TestContextExtractorParams(t *testing.T) {
	tests := []struct {
		name         string
		opts         []ContextExtractorOption
		params       map[string]any
		wantFeatures map[string]float64
		absentKeys   []string
	}{
		{
			name: "extract all params without prefix (default)",
			params: map[string]any{
				"latitude":  39.9042,
				"longitude": 116.4074,
				"count":     int(10),
			},
			wantFeatures: map[string]float64{
				"latitude":  39.9042,
				"longitude": 116.4074,
				"count":     10.0,
			},
		},
		{
			name: "extract params with custom prefix",
			opts: []ContextExtractorOption{
				WithParamsPrefix("ctx_"),
			},
			params: map[string]any{
				"latitude": 39.9042,
			},
			wantFeatures: map[string]float64{
				"ctx_latitude": 39.9042,
			},
			absentKeys: []string{"latitude"},
		},
		{
			name: "extract only allowlisted keys",
			opts: []ContextExtractorOption{
				WithParamsKeys([]string{"latitude", "longitude"}),
			},
			params: map[string]any{
				"latitude":  39.9042,
				"longitude": 116.4074,
				"other":     999.0,
			},
			wantFeatures: map[string]float64{
				"latitude":  39.9042,
				"longitude": 116.4074,
			},
			absentKeys: []string{"other"},
		},
		{
			name: "skip non-numeric values",
			params: map[string]any{
				"latitude": 39.9042,
				"name":     "test",
				"tags":     []string{"a"},
			},
			wantFeatures: map[string]float64{
				"latitude": 39.9042,
			},
			absentKeys: []string{"name", "tags"},
		},
		{
			name: "params disabled explicitly",
			opts: []ContextExtractorOption{
				WithIncludeParams(false),
			},
			params: map[string]any{
				"latitude": 39.9042,
			},
			wantFeatures: map[string]float64{},
			absentKeys:   []string{"latitude"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewContextExtractor(tt.opts...)
			rctx := &core.RecommendContext{
				UserID: "u-1",
				Params: tt.params,
			}

			features, err := extractor.Extract(context.Background(), rctx)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			for key, want := range tt.wantFeatures {
				got, ok := features[key]
				if !ok {
					t.Errorf("missing expected feature %q", key)
					continue
				}
				if got != want {
					t.Errorf("feature %q = %v, want %v", key, got, want)
				}
			}
			for _, key := range tt.absentKeys {
				if _, ok := features[key]; ok {
					t.Errorf("unexpected feature %q", key)
				}
			}
		})
	}
}

func TestContextExtractorCombinesProfileAndParams(t *testing.T) {
	extractor := NewContextExtractor(WithParamsPrefix("ctx_"))

	rctx := &core.RecommendContext{
		UserID: "u-1",
		User: &core.UserProfile{
			UserID:          "u-1",
			MeanRating:      7.5,
			StdRating:       1.2,
			RatingCount:     42,
			ExplicitCount:   40,
			ReaderLevel:     "casual_reader",
			CriticProfile:   "generous",
			PreferredGenres: []string{"Fantasy", "Mystery"},
		},
		Attrs: &core.UserAttributes{
			UserID:     "u-1",
			AgeBracket: "young-adult",
			Gender:     "female",
			Location: core.Location{
				Latitude:  40.7128,
				Longitude: -74.0060,
				HasCoords: true,
			},
		},
		Params: map[string]any{
			"time_of_day": 14.5,
		},
	}

	features, err := extractor.Extract(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := map[string]float64{
		"mean_rating":      7.5,
		"std_rating":       1.2,
		"rating_count":     42,
		"explicit_count":   40,
		"reader_level":     3, // casual_reader
		"critic_profile":   3, // generous
		"preferred_genres": 2,
		"age_bracket":      3, // young-adult
		"gender":           2, // female
		"latitude":         40.7128,
		"longitude":        -74.0060,
		"ctx_time_of_day":  14.5,
	}
	for key, val := range want {
		if features[key] != val {
			t.Errorf("feature %q = %v, want %v", key, features[key], val)
		}
	}
}

func TestContextExtractorNilContext(t *testing.T) {
	extractor := NewContextExtractor()
	features, err := extractor.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(features) != 0 {
		t.Errorf("expected empty features for nil context, got %v", features)
	}
}

type stubFeatureService struct {
	user map[string]map[string]float64
	item map[string]map[string]float64
	err  error

	userCalls int
	itemCalls int
}

func (s *stubFeatureService) Name() string { return "stub" }

func (s *stubFeatureService) GetUserFeatures(_ context.Context, userID string) (map[string]float64, error) {
	s.userCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.user[userID], nil
}

func (s *stubFeatureService) BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error) {
	s.userCalls++
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[string]map[string]float64)
	for _, id := range userIDs {
		if f, ok := s.user[id]; ok {
			result[id] = f
		}
	}
	return result, nil
}

func (s *stubFeatureService) GetItemFeatures(_ context.Context, isbn string) (map[string]float64, error) {
	s.itemCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.item[isbn], nil
}

func (s *stubFeatureService) BatchGetItemFeatures(ctx context.Context, isbns []string) (map[string]map[string]float64, error) {
	s.itemCalls++
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[string]map[string]float64)
	for _, isbn := range isbns {
		if f, ok := s.item[isbn]; ok {
			result[isbn] = f
		}
	}
	return result, nil
}

func (s *stubFeatureService) Close(context.Context) error { return nil }

func TestContextExtractorPrefersService(t *testing.T) {
	service := &stubFeatureService{
		user: map[string]map[string]float64{
			"u-1": {"mean_rating": 9.9},
		},
	}
	extractor := NewContextExtractor(WithFeatureService(service))

	rctx := &core.RecommendContext{
		UserID: "u-1",
		User:   &core.UserProfile{UserID: "u-1", MeanRating: 1.0},
	}
	features, err := extractor.Extract(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if features["mean_rating"] != 9.9 {
		t.Errorf("mean_rating = %v, want service value 9.9", features["mean_rating"])
	}
}

func TestContextExtractorServiceErrorFallsBack(t *testing.T) {
	service := &stubFeatureService{err: errors.New("unavailable")}
	extractor := NewContextExtractor(WithFeatureService(service))

	rctx := &core.RecommendContext{
		UserID: "u-1",
		User:   &core.UserProfile{UserID: "u-1", MeanRating: 6.5},
	}
	features, err := extractor.Extract(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if features["mean_rating"] != 6.5 {
		t.Errorf("mean_rating = %v, want local fallback 6.5", features["mean_rating"])
	}
}

func TestExtractorItemFeatures(t *testing.T) {
	book := &core.Book{
		ISBN:    "bk-1",
		Title:   "The Fifth Season",
		Authors: []string{"N. K. Jemisin"},
		Genres:  []string{"Fantasy", "Science Fiction"},
		Year:    2015,
		Price:   14.99,
	}
	metrics := &core.ItemMetrics{
		ISBN:               "bk-1",
		Count:              120,
		Average:            8.4,
		Std:                1.1,
		QualityScore:       8.27,
		QualityCategory:    "very_high",
		RecentCount:        15,
		PopularityScore:    31.2,
		PopularityCategory: "medium",
	}

	tests := []struct {
		name    string
		x       Extractor
		book    *core.Book
		metrics *core.ItemMetrics
		want    map[string]float64
		absent  []string
	}{
		{
			name:    "book and metrics",
			book:    book,
			metrics: metrics,
			want: map[string]float64{
				"year":             2015,
				"price":            14.99,
				"genre_count":      2,
				"author_count":     1,
				"rating_count":     120,
				"average_rating":   8.4,
				"rating_std":       1.1,
				"quality_score":    8.27,
				"recent_count":     15,
				"popularity_score": 31.2,
				"quality_level":    4,
				"popularity_level": 2,
			},
		},
		{
			name: "book only",
			book: book,
			want: map[string]float64{
				"year":        2015,
				"genre_count": 2,
			},
			absent: []string{"rating_count", "quality_score"},
		},
		{
			name:    "metrics only",
			metrics: metrics,
			want: map[string]float64{
				"quality_score": 8.27,
			},
			absent: []string{"year", "price"},
		},
		{
			name:    "skip categorical",
			x:       Extractor{SkipCategorical: true},
			book:    book,
			metrics: metrics,
			want: map[string]float64{
				"quality_score": 8.27,
			},
			absent: []string{"quality_level", "popularity_level"},
		},
		{
			name:   "nil everything",
			want:   map[string]float64{},
			absent: []string{"year", "quality_score"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features := tt.x.ItemFeatures(tt.book, tt.metrics)
			for key, val := range tt.want {
				if features[key] != val {
					t.Errorf("feature %q = %v, want %v", key, features[key], val)
				}
			}
			for _, key := range tt.absent {
				if _, ok := features[key]; ok {
					t.Errorf("unexpected feature %q = %v", key, features[key])
				}
			}
		})
	}
}

func TestExtractorUserFeaturesRanges(t *testing.T) {
	var x Extractor
	profile := &core.UserProfile{
		UserID:        "u-1",
		MeanRating:    7.0,
		RatingCount:   10,
		ExplicitCount: 8,
		PriceRange:    core.PriceRange{Min: 5, Max: 25, OK: true},
		YearRange:     core.YearRange{Min: 1990, Max: 2020, OK: false},
	}

	features := x.UserFeatures(profile, nil)
	if features["price_min"] != 5 || features["price_max"] != 25 {
		t.Errorf("price range = [%v, %v], want [5, 25]", features["price_min"], features["price_max"])
	}
	if _, ok := features["year_min"]; ok {
		t.Errorf("year_min should be absent when YearRange not OK")
	}
}

func TestEncodeOrdinals(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"gender male", EncodeGender("male"), 1},
		{"gender unknown", EncodeGender("unknown"), 0},
		{"gender empty", EncodeGender(""), 0},
		{"age child", EncodeAgeBracket("child"), 1},
		{"age 60+", EncodeAgeBracket("60+"), 6},
		{"age garbage", EncodeAgeBracket("n/a"), 0},
		{"reader power", EncodeReaderLevel("power_reader"), 5},
		{"reader empty", EncodeReaderLevel(""), 0},
		{"critic balanced", EncodeCriticProfile("balanced"), 4},
		{"quality unrated", EncodeQualityCategory("unrated"), 0},
		{"quality very_high", EncodeQualityCategory("very_high"), 4},
		{"popularity high", EncodePopularityCategory("high"), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
