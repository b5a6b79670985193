package feast

import (
	"context"
	"strings"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/conv"
)

// 默认特征引用，与 feature.Extractor 的本地编码同名：同一个模型既可以
// 吃本地就地编码，也可以吃 Feast 物化的线上版本。
var (
	DefaultUserFeatureRefs = []string{
		"reader_stats:mean_rating",
		"reader_stats:std_rating",
		"reader_stats:rating_count",
		"reader_stats:explicit_count",
		"reader_stats:reader_level",
		"reader_stats:critic_profile",
	}
	DefaultItemFeatureRefs = []string{
		"book_stats:rating_count",
		"book_stats:average_rating",
		"book_stats:quality_score",
		"book_stats:recent_count",
		"book_stats:popularity_score",
	}
)

// Service 把 Client 适配成 core.FeatureService。
//
// 特征引用（view:feature）按实体批量请求，返回的特征名剥掉视图前缀，
// 只保留短名，与 feature.Extractor 输出对齐。非数值特征丢弃。
type Service struct {
	client Client

	// UserEntity / ItemEntity 是 Feast 中的实体 join key
	UserEntity string
	ItemEntity string

	// UserFeatures / ItemFeatures 是要取的特征引用列表
	UserFeatures []string
	ItemFeatures []string
}

// NewService 创建 Feast 特征服务。userFeatures / itemFeatures 为 nil 时
// 用默认引用（Default*FeatureRefs）。
func NewService(client Client, userFeatures, itemFeatures []string) *Service {
	if userFeatures == nil {
		userFeatures = DefaultUserFeatureRefs
	}
	if itemFeatures == nil {
		itemFeatures = DefaultItemFeatureRefs
	}
	return &Service{
		client:       client,
		UserEntity:   "user_id",
		ItemEntity:   "isbn",
		UserFeatures: userFeatures,
		ItemFeatures: itemFeatures,
	}
}

var _ core.FeatureService = (*Service)(nil)

func (s *Service) Name() string { return "feast" }

func (s *Service) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	result, err := s.getOnline(ctx, s.UserEntity, []string{userID}, s.UserFeatures)
	if err != nil {
		return nil, err
	}
	return result[userID], nil
}

func (s *Service) BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error) {
	return s.getOnline(ctx, s.UserEntity, userIDs, s.UserFeatures)
}

func (s *Service) GetItemFeatures(ctx context.Context, isbn string) (map[string]float64, error) {
	result, err := s.getOnline(ctx, s.ItemEntity, []string{isbn}, s.ItemFeatures)
	if err != nil {
		return nil, err
	}
	return result[isbn], nil
}

func (s *Service) BatchGetItemFeatures(ctx context.Context, isbns []string) (map[string]map[string]float64, error) {
	return s.getOnline(ctx, s.ItemEntity, isbns, s.ItemFeatures)
}

func (s *Service) Close(ctx context.Context) error {
	return s.client.Close()
}

func (s *Service) getOnline(ctx context.Context, entity string, ids []string, refs []string) (map[string]map[string]float64, error) {
	result := make(map[string]map[string]float64, len(ids))
	if len(ids) == 0 || len(refs) == 0 {
		return result, nil
	}

	entityRows := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		entityRows[i] = map[string]interface{}{entity: id}
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   refs,
		EntityRows: entityRows,
	})
	if err != nil {
		return nil, err
	}

	for i, vector := range resp.FeatureVectors {
		if i >= len(ids) {
			break
		}
		features := make(map[string]float64, len(vector.Values))
		for _, ref := range refs {
			if fv, ok := conv.ToFloat64(vector.Values[ref]); ok {
				features[shortName(ref)] = fv
			}
		}
		result[ids[i]] = features
	}
	return result, nil
}

// shortName 去掉特征引用的视图前缀："book_stats:quality_score" → "quality_score"。
func shortName(ref string) string {
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}
