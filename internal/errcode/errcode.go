package errcode

import (
	"errors"
	"fmt"
)

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如导出产物尚未就绪）
// - 5xxx：系统错误（需要中断流程）
const (
	OK               = 0
	ArtifactNotReady = 4001
	ResourceMissing  = 4004
	SystemError      = 5000
)

// Kind 区分错误类别，决定对外暴露的 HTTP 状态码。
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error 携带类别与面向调用方的消息。
// Internal 类错误的详细原因只进日志，Message 保持通用描述。
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Validationf 构造校验错误（入参非法、格式错误等）。
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf 构造资源缺失错误。归属不匹配也按 NotFound 上报，避免泄露资源存在性。
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf 构造引用完整性冲突错误（例如删除仍被引用的分类）。
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internalf 构造系统错误，cause 会保留在错误链中供日志使用。
func Internalf(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf 提取错误类别；非 *Error 一律视为 internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf 提取面向调用方的消息；internal 类错误只返回通用描述。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal error"
}
