// Package apperr 定义业务层对外暴露的错误类别，由 response.Error 映射为 HTTP 状态码。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAuthenticationRequired
	KindForbidden
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation_error"
	default:
		return "internal"
	}
}

// Status 类别对应的 HTTP 状态码
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error 业务错误；Fields 为按字段的校验信息
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 与同类别的哨兵错误匹配，支持 errors.Is(err, apperr.ErrForbidden)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrValidation             = &Error{Kind: KindValidation}
)

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func AuthenticationRequired(msg string) *Error {
	return &Error{Kind: KindAuthenticationRequired, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// ValidationFields 携带按字段的错误信息，如注册时用户名重复
func ValidationFields(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// KindOf 非 *Error 的错误一律视为 KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }
