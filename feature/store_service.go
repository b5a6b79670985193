package feature

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/bookrec/core"
)

// StoreKeyPrefix 定义特征在 KV 中的 key 前缀。
type StoreKeyPrefix struct {
	User string // 用户特征，默认 "features:user:"
	Item string // 书侧特征，默认 "features:book:"
}

// StoreService 把 core.Store 适配成 FeatureService：特征以 JSON 字典
// 存在 KV 里（MemoryStore / RedisStore 均可），由离线任务通过 Put* 物化。
//
// 读不到的 key 单查时返回 NOT_FOUND 领域错误，批查时从结果中缺省，
// 与仓储层约定一致。
type StoreService struct {
	store  core.Store
	prefix StoreKeyPrefix
}

// NewStoreService 创建基于 KV 的特征服务。
func NewStoreService(store core.Store, prefix StoreKeyPrefix) *StoreService {
	if prefix.User == "" {
		prefix.User = "features:user:"
	}
	if prefix.Item == "" {
		prefix.Item = "features:book:"
	}
	return &StoreService{store: store, prefix: prefix}
}

var _ core.FeatureService = (*StoreService)(nil)

func (s *StoreService) Name() string {
	return fmt.Sprintf("store.%s", s.store.Name())
}

func (s *StoreService) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	return s.get(ctx, s.prefix.User+userID)
}

func (s *StoreService) BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error) {
	return s.batchGet(ctx, s.prefix.User, userIDs)
}

func (s *StoreService) GetItemFeatures(ctx context.Context, isbn string) (map[string]float64, error) {
	return s.get(ctx, s.prefix.Item+isbn)
}

func (s *StoreService) BatchGetItemFeatures(ctx context.Context, isbns []string) (map[string]map[string]float64, error) {
	return s.batchGet(ctx, s.prefix.Item, isbns)
}

// PutUserFeatures 写入用户特征（离线物化入口）。
func (s *StoreService) PutUserFeatures(ctx context.Context, userID string, features map[string]float64) error {
	return s.put(ctx, s.prefix.User+userID, features)
}

// PutItemFeatures 写入书侧特征（离线物化入口）。
func (s *StoreService) PutItemFeatures(ctx context.Context, isbn string, features map[string]float64) error {
	return s.put(ctx, s.prefix.Item+isbn, features)
}

func (s *StoreService) Close(ctx context.Context) error {
	return s.store.Close()
}

func (s *StoreService) get(ctx context.Context, key string) (map[string]float64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.NewNotFoundError(core.ModuleFeature, fmt.Sprintf("features not found: %s", key))
		}
		return nil, err
	}

	var features map[string]float64
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, err
	}
	return features, nil
}

func (s *StoreService) batchGet(ctx context.Context, prefix string, ids []string) (map[string]map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]map[string]float64{}, nil
	}

	keys := make([]string, len(ids))
	keyToID := make(map[string]string, len(ids))
	for i, id := range ids {
		key := prefix + id
		keys[i] = key
		keyToID[key] = id
	}

	dataMap, err := s.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string]float64, len(dataMap))
	for key, data := range dataMap {
		var features map[string]float64
		if err := json.Unmarshal(data, &features); err != nil {
			continue // 跳过坏数据，不让单条脏记录拖垮整批
		}
		result[keyToID[key]] = features
	}
	return result, nil
}

func (s *StoreService) put(ctx context.Context, key string, features map[string]float64) error {
	data, err := json.Marshal(features)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, key, data)
}
