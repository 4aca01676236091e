package errx

import (
	"errors"
	"fmt"
	"runtime"
)

// Code 是错误的稳定标识，对外协议只看它。
type Code string

type kind uint8

const (
	kindBiz kind = iota
	kindSys
)

// Reason 提供细分原因码，挂在 data["reason"] 上。
type Reason interface {
	ReasonCode() string
}

// Error 区分两类：
// 业务拒绝（biz）不带栈；系统故障（sys）在第一次挂 cause 时记录一次调用栈。
// 所有 With* 方法返回新对象，原对象不变。
type Error struct {
	code  Code
	msg   string
	data  map[string]any
	cause error
	stack []uintptr
	kind  kind
}

func NewBiz(code Code, msg string) *Error {
	return &Error{code: code, msg: msg, kind: kindBiz}
}

func NewSys(code Code, msg string) *Error {
	return &Error{code: code, msg: msg, kind: kindSys}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	head := string(e.code)
	if e.msg != "" {
		head = head + ": " + e.msg
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", head, e.cause)
	}
	return head
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 只比较 code。
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.code == t.code
}

func (e *Error) Code() Code {
	if e == nil {
		return ""
	}
	return e.code
}

func (e *Error) CodeText() string {
	return string(e.Code())
}

func (e *Error) Msg() string {
	if e == nil {
		return ""
	}
	return e.msg
}

func (e *Error) IsBiz() bool {
	return e != nil && e.kind == kindBiz
}

func (e *Error) IsSys() bool {
	return e != nil && e.kind == kindSys
}

// Data 返回副本。
func (e *Error) Data() map[string]any {
	if e == nil {
		return nil
	}
	return copyData(e.data)
}

func (e *Error) Reason() string {
	if e == nil {
		return ""
	}
	s, _ := e.data["reason"].(string)
	return s
}

func (e *Error) Stack() []uintptr {
	if e == nil || len(e.stack) == 0 {
		return nil
	}
	return append([]uintptr(nil), e.stack...)
}

func (e *Error) derive() *Error {
	return &Error{
		code:  e.code,
		msg:   e.msg,
		data:  copyData(e.data),
		cause: e.cause,
		stack: e.Stack(),
		kind:  e.kind,
	}
}

func (e *Error) WithData(key string, value any) *Error {
	next := e.derive()
	if next.data == nil {
		next.data = map[string]any{}
	}
	next.data[key] = value
	return next
}

func (e *Error) WithDataMap(data map[string]any) *Error {
	next := e.derive()
	if len(data) == 0 {
		return next
	}
	if next.data == nil {
		next.data = make(map[string]any, len(data))
	}
	for k, v := range data {
		next.data[k] = v
	}
	return next
}

func (e *Error) WithReason(r Reason) *Error {
	if r == nil {
		return e.WithData("reason", "")
	}
	return e.WithData("reason", r.ReasonCode())
}

func (e *Error) WithMsg(msg string) *Error {
	next := e.derive()
	next.msg = msg
	return next
}

func (e *Error) WithCause(cause error) *Error {
	next := e.derive()
	next.cause = cause
	// 下层已经带栈就不再重复记录
	if next.kind == kindSys && cause != nil && len(next.stack) == 0 && !chainHasStack(cause) {
		next.stack = callers(3)
	}
	return next
}

// CodeOf 取错误链上第一个 *Error 的 code，没有则为空。
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// IsBiz 判断错误链上第一个 *Error 是否为业务拒绝。
func IsBiz(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsBiz()
}

func copyData(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func callers(skip int) []uintptr {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	return pcs[:n]
}

func chainHasStack(err error) bool {
	for depth := 0; err != nil && depth < 32; depth++ {
		if sp, ok := err.(interface{ Stack() []uintptr }); ok && len(sp.Stack()) > 0 {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
