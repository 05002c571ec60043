// Package retrieval 实现混合证据检索引擎：
// 查询分类、SQL/向量双路径召回、证据打分、置信度评估与澄清问题生成。
package retrieval

import (
	"errors"
	"fmt"
)

// ErrRetrievalUnavailable 检索后端不可用（超时或连接失败）。
// 编排器捕获该错误并触发回退，绝不向调用方透出。
var ErrRetrievalUnavailable = errors.New("retrieval backend unavailable")

// ValidationError 查询无法安全映射到任何检索模板，需调用方修正后重试
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query validation failed: %s", e.Reason)
}

// IsValidationError 判断错误链中是否包含 ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnavailable 判断错误链中是否包含 ErrRetrievalUnavailable
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrRetrievalUnavailable)
}
