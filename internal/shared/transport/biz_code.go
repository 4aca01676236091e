package transport

import (
	"errors"

	"Vikings/modules/kit/errx"
)

// BizCode 是响应体里的 code 字段。0 成功，1~499 业务拒绝，>=500 系统故障。
type BizCode int

const (
	OK           BizCode = 0
	InvalidParam BizCode = 400
	Unauthorized BizCode = 401
	Forbidden    BizCode = 403
	NotFound     BizCode = 404
	Conflict     BizCode = 409
	RateLimited  BizCode = 429
	SystemError  BizCode = 500
	Unavailable  BizCode = 503
)

// Response 是 HTTP/WS 统一响应体。
type Response struct {
	Code   BizCode `json:"code"`
	Msg    string  `json:"msg,omitempty"`
	Reason string  `json:"reason,omitempty"`
	Data   any     `json:"data,omitempty"`
}

func Success(data any) Response {
	return Response{Code: OK, Data: data}
}

// Failure 把错误转换成响应体；业务错误透出 msg，系统错误只给通用文案。
func Failure(err error) Response {
	code := CodeFromError(err)
	var e *errx.Error
	if !errors.As(err, &e) {
		return Response{Code: code, Msg: "服务器内部错误"}
	}
	if e.IsSys() {
		return Response{Code: code, Msg: errx.ErrInternal.Msg(), Reason: string(e.Code())}
	}
	reason := e.Reason()
	if reason == "" {
		reason = string(e.Code())
	}
	return Response{Code: code, Msg: e.Msg(), Reason: reason}
}

// bizCodes 由各业务模块在 init 时登记 errx.Code -> BizCode。
var bizCodes = map[errx.Code]BizCode{
	errx.CodeInvalidParam:  InvalidParam,
	errx.CodeRateLimited:   RateLimited,
	errx.CodeUnavailable:   Unavailable,
	errx.CodeTimeout:       Unavailable,
	errx.CodeMaintenance:   Unavailable,
	errx.CodeInternal:      SystemError,
	errx.CodeCorruptedData: SystemError,
}

// RegisterCode 只应在 init 阶段调用。
func RegisterCode(code errx.Code, biz BizCode) {
	bizCodes[code] = biz
}

func CodeFromError(err error) BizCode {
	if err == nil {
		return OK
	}
	var e *errx.Error
	if !errors.As(err, &e) {
		return SystemError
	}
	if c, ok := bizCodes[e.Code()]; ok {
		return c
	}
	if e.IsBiz() {
		return InvalidParam
	}
	return SystemError
}
