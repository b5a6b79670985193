package feature

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/conv"
)

// Extractor 把领域对象编成模型特征（map[string]float64）。
//
// 两侧各一个入口：
//   - ItemFeatures：书目属性（Book）+ 统计指标（ItemMetrics）→ 书侧特征
//   - UserFeatures：行为画像（UserProfile）+ 人口属性（UserAttributes）→ 用户侧特征
//
// 纯编码，无 IO：调用方负责取数（Enrich 节点、特征物化任务）。
// 枚举类字段（reader_level、quality_level 等）按固定序数表编码，
// 训练与在线必须使用同一份编码，见 Encode* 系列函数。
type Extractor struct {
	// SkipCategorical 跳过序数编码的枚举特征，只输出连续特征。
	// 适合对编码方式敏感、在训练侧自行做 one-hot 的模型。
	SkipCategorical bool
}

// ItemFeatures 编码书侧特征。book、m 允许为 nil（缺哪边就少哪边的特征）。
func (e Extractor) ItemFeatures(book *core.Book, m *core.ItemMetrics) map[string]float64 {
	features := make(map[string]float64)

	if book != nil {
		if book.Year > 0 {
			features["year"] = float64(book.Year)
		}
		if book.Price > 0 {
			features["price"] = book.Price
		}
		features["genre_count"] = float64(len(book.Genres))
		features["author_count"] = float64(len(book.Authors))
	}

	if m != nil {
		features["rating_count"] = float64(m.Count)
		features["average_rating"] = m.Average
		features["rating_std"] = m.Std
		features["quality_score"] = m.QualityScore
		features["recent_count"] = float64(m.RecentCount)
		features["popularity_score"] = m.PopularityScore
		if !e.SkipCategorical {
			features["quality_level"] = EncodeQualityCategory(m.QualityCategory)
			features["popularity_level"] = EncodePopularityCategory(m.PopularityCategory)
		}
	}

	return features
}

// UserFeatures 编码用户侧特征。profile、attrs 允许为 nil。
func (e Extractor) UserFeatures(profile *core.UserProfile, attrs *core.UserAttributes) map[string]float64 {
	features := make(map[string]float64)

	if profile != nil {
		features["mean_rating"] = profile.MeanRating
		features["std_rating"] = profile.StdRating
		features["rating_count"] = float64(profile.RatingCount)
		features["explicit_count"] = float64(profile.ExplicitCount)
		features["preferred_genres"] = float64(len(profile.PreferredGenres))
		features["preferred_authors"] = float64(len(profile.PreferredAuthors))
		features["favorite_books"] = float64(len(profile.FavoriteBooks))
		if profile.PriceRange.OK {
			features["price_min"] = profile.PriceRange.Min
			features["price_max"] = profile.PriceRange.Max
		}
		if profile.YearRange.OK {
			features["year_min"] = float64(profile.YearRange.Min)
			features["year_max"] = float64(profile.YearRange.Max)
		}
		if !e.SkipCategorical {
			features["reader_level"] = EncodeReaderLevel(profile.ReaderLevel)
			features["critic_profile"] = EncodeCriticProfile(profile.CriticProfile)
		}
	}

	if attrs != nil {
		if !e.SkipCategorical {
			features["age_bracket"] = EncodeAgeBracket(attrs.AgeBracket)
			features["gender"] = EncodeGender(attrs.Gender)
		}
		if attrs.Location.HasCoords {
			features["latitude"] = attrs.Location.Latitude
			features["longitude"] = attrs.Location.Longitude
		}
	}

	return features
}

// 序数编码表。未识别的取值一律编码为 0，训练侧同表。
var (
	ageBracketCodes = map[string]float64{
		"child":       1,
		"juvenile":    2,
		"young-adult": 3,
		"30-40":       4,
		"40-60":       5,
		"60+":         6,
	}
	readerLevelCodes = map[string]float64{
		"implicit_only": 1,
		"new_reader":    2,
		"casual_reader": 3,
		"active_reader": 4,
		"power_reader":  5,
	}
	criticProfileCodes = map[string]float64{
		"consistent": 1,
		"critical":   2,
		"generous":   3,
		"balanced":   4,
	}
	qualityCategoryCodes = map[string]float64{
		"low":       1,
		"mid":       2,
		"high":      3,
		"very_high": 4,
	}
	popularityCategoryCodes = map[string]float64{
		"low":    1,
		"medium": 2,
		"high":   3,
	}
)

// EncodeGender 性别编码：male=1、female=2、其余=0。
func EncodeGender(gender string) float64 {
	switch gender {
	case "male":
		return 1
	case "female":
		return 2
	default:
		return 0
	}
}

// EncodeAgeBracket 年龄段序数编码（child=1 … 60+=6，unknown=0）。
func EncodeAgeBracket(bracket string) float64 {
	return ageBracketCodes[bracket]
}

// EncodeReaderLevel 读者分层序数编码（implicit_only=1 … power_reader=5）。
func EncodeReaderLevel(level string) float64 {
	return readerLevelCodes[level]
}

// EncodeCriticProfile 评分风格序数编码。
func EncodeCriticProfile(profile string) float64 {
	return criticProfileCodes[profile]
}

// EncodeQualityCategory 质量档位序数编码（unrated=0 … very_high=4）。
func EncodeQualityCategory(category string) float64 {
	return qualityCategoryCodes[category]
}

// EncodePopularityCategory 热度档位序数编码（unknown=0 … high=3）。
func EncodePopularityCategory(category string) float64 {
	return popularityCategoryCodes[category]
}

// ContextExtractor 从 RecommendContext 提取用户侧特征。
//
// 提取优先级：
//  1. Service（可选）：远程特征服务命中即返回
//  2. 本地编码：画像 + 人口属性（嵌入的 Extractor）
//  3. 请求参数：Params 中可转 float64 的值（latitude、time_of_day 等）
//
// Params 提取可通过 ParamsKeys 白名单收窄、ParamsPrefix 加前缀隔离。
type ContextExtractor struct {
	Extractor

	// Service 远程特征服务，设置后优先使用
	Service core.FeatureService

	// ParamsPrefix 参数特征前缀（如 "ctx_"），空则不加
	ParamsPrefix string

	// ParamsKeys 参数白名单，空表示提取全部可转换的参数
	ParamsKeys []string

	// IncludeParams 是否提取请求参数特征
	IncludeParams bool
}

// ContextExtractorOption 配置选项
type ContextExtractorOption func(*ContextExtractor)

// NewContextExtractor 创建上下文特征提取器，默认提取全部请求参数。
func NewContextExtractor(opts ...ContextExtractorOption) *ContextExtractor {
	extractor := &ContextExtractor{
		IncludeParams: true,
	}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

// WithFeatureService 设置远程特征服务（优先使用）
func WithFeatureService(service core.FeatureService) ContextExtractorOption {
	return func(e *ContextExtractor) {
		e.Service = service
	}
}

// WithParamsPrefix 设置参数特征前缀（如 "ctx_"）
func WithParamsPrefix(prefix string) ContextExtractorOption {
	return func(e *ContextExtractor) {
		e.ParamsPrefix = prefix
	}
}

// WithParamsKeys 设置参数白名单，只提取指定 key
func WithParamsKeys(keys []string) ContextExtractorOption {
	return func(e *ContextExtractor) {
		e.ParamsKeys = keys
	}
}

// WithIncludeParams 设置是否提取请求参数
func WithIncludeParams(include bool) ContextExtractorOption {
	return func(e *ContextExtractor) {
		e.IncludeParams = include
	}
}

func (e *ContextExtractor) Name() string {
	return "context"
}

// Extract 提取当前请求的用户侧特征。
func (e *ContextExtractor) Extract(ctx context.Context, rctx *core.RecommendContext) (map[string]float64, error) {
	if e.Service != nil && rctx != nil && rctx.UserID != "" {
		features, err := e.Service.GetUserFeatures(ctx, rctx.UserID)
		if err == nil && len(features) > 0 {
			return features, nil
		}
	}

	if rctx == nil {
		return map[string]float64{}, nil
	}

	features := e.UserFeatures(rctx.GetUserProfile(), rctx.Attrs)
	if e.IncludeParams {
		e.extractParams(rctx.Params, features)
	}
	return features, nil
}

func (e *ContextExtractor) extractParams(params map[string]any, features map[string]float64) {
	if len(params) == 0 {
		return
	}

	if len(e.ParamsKeys) > 0 {
		for _, key := range e.ParamsKeys {
			if fv, ok := conv.ToFloat64(params[key]); ok {
				features[e.ParamsPrefix+key] = fv
			}
		}
		return
	}

	for key, v := range params {
		if fv, ok := conv.ToFloat64(v); ok {
			features[e.ParamsPrefix+key] = fv
		}
	}
}
