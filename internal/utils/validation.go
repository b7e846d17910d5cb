package utils

import (
	"regexp"
	"strings"
)

// ValidateOrganizationID 验证组织 ID 格式
func ValidateOrganizationID(id string) error {
	// 1. 检查是否为空
	if id == "" {
		return ErrEmptyID
	}

	// 2. 检查格式（只允许字母、数字、连字符、下划线）
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, id)
	if !matched {
		return ErrInvalidIDFormat
	}

	// 3. 检查长度（最大 64 字符）
	if len(id) > 64 {
		return ErrIDTooLong
	}

	return nil
}

// ValidateLogID 验证迁移日志 ID 格式
func ValidateLogID(id string) error {
	return ValidateOrganizationID(id) // 使用相同的验证规则
}

// ValidateCaseID 验证案件 ID 格式
func ValidateCaseID(id string) error {
	return ValidateOrganizationID(id)
}

// ValidateOperator 验证操作者标识
func ValidateOperator(operator string) error {
	trimmed := strings.TrimSpace(operator)
	if trimmed == "" {
		return ErrEmptyOperator
	}
	if len(trimmed) > 128 {
		return ErrOperatorTooLong
	}
	return nil
}

// 错误定义
var (
	ErrEmptyID         = &ValidationError{Code: "EMPTY_ID", Message: "id cannot be empty"}
	ErrInvalidIDFormat = &ValidationError{Code: "INVALID_ID_FORMAT", Message: "id contains invalid characters"}
	ErrIDTooLong       = &ValidationError{Code: "ID_TOO_LONG", Message: "id exceeds maximum length"}
	ErrEmptyOperator   = &ValidationError{Code: "EMPTY_OPERATOR", Message: "operator cannot be empty"}
	ErrOperatorTooLong = &ValidationError{Code: "OPERATOR_TOO_LONG", Message: "operator exceeds maximum length"}
)

// ValidationError 验证错误
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
