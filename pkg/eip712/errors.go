package eip712

import (
	"fmt"

	"github.com/pkg/errors"
)

// 错误类别。所有错误对单次调用都是终止性的，不会返回部分签名。
var (
	ErrInvalidKey      = errors.New("InvalidKey")
	ErrSchemaMismatch  = errors.New("SchemaMismatch")
	ErrUnsupportedType = errors.New("UnsupportedType")
	ErrEncodingFailure = errors.New("EncodingFailure")

	errInvalidHex = errors.New("private key is not valid hex")
)

// Error 带类别和字段路径的错误
type Error struct {
	Kind  error  // 上面四个哨兵之一
	Path  string // 出错位置，例如 Agreement.active；可为空
	Cause error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is 让 errors.Is(err, ErrSchemaMismatch) 之类的判断成立
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind error, path string, format string, args ...interface{}) error {
	return &Error{Kind: kind, Path: path, Cause: fmt.Errorf(format, args...)}
}

func wrapError(kind error, path string, cause error, msg string) error {
	return &Error{Kind: kind, Path: path, Cause: errors.Wrap(cause, msg)}
}

// KindOf 返回错误所属类别；非本包错误返回 nil
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidKey, ErrSchemaMismatch, ErrUnsupportedType, ErrEncodingFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
