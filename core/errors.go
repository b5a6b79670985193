package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），经 fmt.Errorf("%w") 包装后仍可识别
//
// 传播策略：
//   - NOT_FOUND：引用的用户/书目不存在，原样上抛，不做静默兜底
//   - INSUFFICIENT_DATA：单个信号数据不足，就地降级（跳过该信号或转冷启动），不致命
//   - INVALID_CONFIG：权重/阈值/k 非法，立即失败，不做静默默认
//   - MODEL_NOT_FITTED：未拟合模型被要求预测，该调用失败，但混合引擎可捕获后跳过隐因子信号
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INSUFFICIENT_DATA"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "similarity", "factor"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError（支持包装链），如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐引擎错误代码
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 数据不足，可降级
	ErrorCodeInvalidConfig    = "INVALID_CONFIG"    // 配置非法，致命
	ErrorCodeModelNotFitted   = "MODEL_NOT_FITTED"  // 模型未拟合
)

// 模块名称常量
const (
	ModuleStore      = "store"      // 存储模块
	ModuleFeature    = "feature"    // 特征模块
	ModuleSimilarity = "similarity" // 邻居发现模块
	ModuleFactor     = "factor"     // 隐因子模型模块
	ModuleContent    = "content"    // 内容信号模块
	ModuleHybrid     = "hybrid"     // 混合引擎模块
	ModuleColdStart  = "coldstart"  // 冷启动模块
	ModuleExplain    = "explain"    // 解释模块
	ModuleTrending   = "trending"   // 趋势模块
	ModuleProfile    = "profile"    // 画像更新模块
	ModuleSignal     = "signal"     // 打分信号模块
)

// NewNotFoundError 创建 NOT_FOUND 错误（引用的用户或书目无记录）。
func NewNotFoundError(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeNotFound, message)
}

// NewInsufficientDataError 创建 INSUFFICIENT_DATA 错误（信号数据不足，可就地降级）。
func NewInsufficientDataError(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeInsufficientData, message)
}

// NewConfigurationError 创建 INVALID_CONFIG 错误（权重/阈值/k 非法，致命）。
func NewConfigurationError(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidConfig, message)
}

// NewModelNotFittedError 创建 MODEL_NOT_FITTED 错误。
func NewModelNotFittedError(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeModelNotFitted, message)
}

// 通用错误检查函数

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA
func IsInsufficientData(err error) bool {
	return hasCode(err, ErrorCodeInsufficientData)
}

// IsConfiguration 检查错误是否为 INVALID_CONFIG
func IsConfiguration(err error) bool {
	return hasCode(err, ErrorCodeInvalidConfig)
}

// IsModelNotFitted 检查错误是否为 MODEL_NOT_FITTED
func IsModelNotFitted(err error) bool {
	return hasCode(err, ErrorCodeModelNotFitted)
}
