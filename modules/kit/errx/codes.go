package errx

// 跨服务共用的系统类错误码。业务码由各模块自己定义，不放在 kit。
const (
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeTimeout       Code = "TIMEOUT"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeMaintenance   Code = "MAINTENANCE"
	CodeInvalidParam  Code = "INVALID_PARAM"
	CodeCorruptedData Code = "CORRUPTED_DATA"
)

// 哨兵错误只读；需要上下文时用 WithData/WithCause 派生。
var (
	ErrInternal      = NewSys(CodeInternal, "服务器内部错误")
	ErrUnavailable   = NewSys(CodeUnavailable, "依赖服务不可用")
	ErrTimeout       = NewSys(CodeTimeout, "调用超时")
	ErrRateLimited   = NewBiz(CodeRateLimited, "请求过于频繁")
	ErrMaintenance   = NewSys(CodeMaintenance, "服务维护中")
	ErrInvalidParam  = NewBiz(CodeInvalidParam, "请求参数错误")
	ErrCorruptedData = NewSys(CodeCorruptedData, "数据损坏")
)
