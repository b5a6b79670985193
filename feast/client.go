package feast

import (
	"context"
	"time"
)

// Client 是 Feast Feature Store 的客户端接口。
//
// Feast 是开源 Feature Store：离线特征存训练数据，在线特征存实时预测数据，
// Feature Server 对外提供特征服务。本包只覆盖推荐服务需要的在线读路径，
// 特征注册、物化、历史特征导出走 feast CLI / HTTP API。
//
// 特征名采用 "<feature_view>:<feature>" 形式，例如：
//   - "book_stats:quality_score"（书侧统计视图）
//   - "reader_stats:mean_rating"（用户阅读统计视图）
//
// 参考：https://github.com/feast-dev/feast
type Client interface {
	// GetOnlineFeatures 获取在线特征（实时预测用）
	//
	// 参数：
	//   - Features: 特征名列表，例如 ["book_stats:quality_score"]
	//   - EntityRows: 实体行，例如 [{"isbn": "0439136369"}]
	//
	// 返回与实体行一一对应的特征向量。
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求
type GetOnlineFeaturesRequest struct {
	// Features 特征名列表，例如 ["book_stats:quality_score", "book_stats:popularity_score"]
	Features []string

	// EntityRows 实体行，例如 [{"isbn": "0439136369"}, {"isbn": "0971880107"}]
	EntityRows []map[string]interface{}

	// Project 项目名称（可选，缺省用客户端配置的项目）
	Project string
}

// GetOnlineFeaturesResponse 获取在线特征响应
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 特征向量列表，与请求的实体行一一对应
	FeatureVectors []FeatureVector
}

// FeatureVector 单个实体的特征向量
type FeatureVector struct {
	// Values 特征值，key 为请求中的特征名
	Values map[string]interface{}

	// EntityRow 对应的实体行
	EntityRow map[string]interface{}
}

// ClientConfig Feast 客户端配置
type ClientConfig struct {
	// Endpoint 服务端点（host:port）
	Endpoint string

	// Project 项目名称
	Project string

	// Timeout 单次请求超时
	Timeout time.Duration

	// EnableTLS 是否启用 TLS
	EnableTLS bool

	// Auth 认证信息（可选）
	Auth *AuthConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	// Type 认证类型，目前支持 "static"（静态 Token）
	Type string

	// Token 静态 Token
	Token string
}

// ClientOption Feast 客户端配置选项
type ClientOption func(*ClientConfig)

// WithTimeout 设置单次请求超时
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithAuth 设置认证信息
func WithAuth(auth *AuthConfig) ClientOption {
	return func(c *ClientConfig) {
		c.Auth = auth
	}
}

// WithTLS 启用 TLS
func WithTLS() ClientOption {
	return func(c *ClientConfig) {
		c.EnableTLS = true
	}
}
