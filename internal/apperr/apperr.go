// Package apperr 提供带类别标签的错误类型
// 每个类别在合适的层处理，只有编排层边界才把剩余错误折叠成统一回退
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind int

const (
	// KindConfiguration 配置错误（未知租户等），对请求是致命的
	KindConfiguration Kind = iota + 1
	// KindProvider 外部提供方错误（embedding / 模型 / 向量库），本地降级
	KindProvider
	// KindPersistence 持久化写入错误，必须单独上抛，不得伪装成正常回答
	KindPersistence
	// KindValidation 输入校验错误（空消息、缺少 session id），发生副作用前拒绝
	KindValidation
)

// String 返回类别名称
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindProvider:
		return "provider"
	case KindPersistence:
		return "persistence"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error 带类别的错误
type Error struct {
	kind Kind
	msg  string
	err  error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.err != nil {
		if e.msg != "" {
			return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
		}
		return fmt.Sprintf("%s: %v", e.kind, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.err
}

// Kind 返回错误类别
func (e *Error) Kind() Kind {
	return e.kind
}

// New 创建指定类别的错误
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并打上类别标签
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// Configurationf 创建配置错误
func Configurationf(format string, args ...interface{}) *Error {
	return New(KindConfiguration, format, args...)
}

// Validationf 创建校验错误
func Validationf(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// KindOf 返回错误的类别，非 apperr 错误返回 0
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return 0
}

// Is 判断错误是否属于指定类别
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
