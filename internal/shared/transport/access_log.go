package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Vikings/modules/kit/logx"
	"Vikings/modules/kit/tracex"
)

// AccessLog 是一次请求的访问日志上下文（HTTP 与 WS 共用）。
type AccessLog struct {
	BizCode     BizCode
	ErrorReason string
	User        string
	startTime   time.Time
	action      string
}

type accessLogKey struct{}

// NewContextWithParent 在 parent 上挂 AccessLog 和 trace，span 标记入口服务。
func NewContextWithParent(parent context.Context, span, action string) context.Context {
	if action == "" {
		action = "unknown"
	}
	ctx := tracex.Ensure(parent, span)
	al := &AccessLog{
		BizCode:   SystemError,
		startTime: time.Now(),
		action:    action,
	}
	return context.WithValue(ctx, accessLogKey{}, al)
}

// FromContext 从 context 读取 AccessLog。
func FromContext(ctx context.Context) *AccessLog {
	if ctx == nil {
		return nil
	}
	al, _ := ctx.Value(accessLogKey{}).(*AccessLog)
	return al
}

// SetBizCode 设置业务码。
func SetBizCode(ctx context.Context, code BizCode) {
	if al := FromContext(ctx); al != nil {
		al.BizCode = code
	}
}

// SetErrorReason 设置 access 日志错误原因（失败场景）。
func SetErrorReason(ctx context.Context, reason string) {
	if reason == "" {
		return
	}
	if al := FromContext(ctx); al != nil {
		al.ErrorReason = reason
	}
}

// SetUser 鉴权通过后记下玩家。
func SetUser(ctx context.Context, username string) {
	if al := FromContext(ctx); al != nil {
		al.User = username
	}
}

// WriteAccessLog 在请求结束时调用一次。
func WriteAccessLog(ctx context.Context, log logx.Logger) {
	al := FromContext(ctx)
	if al == nil || log == nil {
		return
	}

	fields := []zap.Field{
		zap.Duration("latency", time.Since(al.startTime)),
	}
	if al.User != "" {
		fields = append(fields, zap.String("user", al.User))
	}
	if al.BizCode == OK {
		fields = append(fields, zap.String("result", "success"))
	} else {
		fields = append(fields, zap.String("result", "failure"))
		if al.ErrorReason != "" {
			fields = append(fields, zap.String("error_reason", al.ErrorReason))
		}
	}
	logx.ReportAccess(ctx, log, al.action, int(al.BizCode), fields...)
}
