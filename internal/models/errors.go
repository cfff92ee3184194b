package models

import "errors"

var (
	// ErrValidation 提交数据缺失或非法，操作在任何修改前终止
	ErrValidation = errors.New("validation failed")

	// ErrNotFound 报告/捐赠索引/用户/告警不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition 状态迁移不满足单调前进规则
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownCategory 认捐的类别未在报告需求中配置
	ErrUnknownCategory = errors.New("unknown requirement category")
)
