package logx

import (
	"context"

	"go.uber.org/zap"
)

// BizLog 描述一次业务拒绝（参数不足、目标非法等）。
type BizLog struct {
	Action  string
	Reason  string
	Message string
}

// SysLog 描述一次系统故障。
type SysLog struct {
	Action string
	Err    error
}

func NewBizLog(action, reason, message string) BizLog {
	return BizLog{Action: action, Reason: reason, Message: message}
}

func NewSysLog(action string, err error) SysLog {
	return SysLog{Action: action, Err: err}
}

// ReportAccess 按业务码分级：0 为 INFO，>=500 为 ERROR，其余 WARN。
func ReportAccess(ctx context.Context, l Logger, action string, bizCode int, fields ...zap.Field) {
	if l == nil {
		return
	}
	all := append([]zap.Field{
		zap.String("log_type", "access"),
		zap.String("action", action),
		zap.Int("biz_code", bizCode),
	}, fields...)
	lg := l.WithContext(ctx)
	switch {
	case bizCode == 0:
		lg.Info("access", all...)
	case bizCode >= 500:
		lg.Error("access", all...)
	default:
		lg.Warn("access", all...)
	}
}

// ReportBiz 业务拒绝只记 INFO，不带栈。
func ReportBiz(ctx context.Context, l Logger, biz BizLog, fields ...zap.Field) {
	if l == nil {
		return
	}
	action := biz.Action
	if action == "" {
		action = "biz_reject"
	}
	all := []zap.Field{zap.String("err_type", "biz"), zap.String("action", action)}
	if biz.Reason != "" {
		all = append(all, zap.String("reason", biz.Reason))
	}
	if biz.Message != "" {
		all = append(all, zap.String("biz_message", biz.Message))
	}
	l.WithContext(ctx).Info(action, append(all, fields...)...)
}

// ReportSysError 系统故障记 ERROR，附带 code/cause 链/首次发生处的栈。
func ReportSysError(ctx context.Context, l Logger, sys SysLog, fields ...zap.Field) {
	if l == nil || sys.Err == nil {
		return
	}
	action := sys.Action
	if action == "" {
		action = "sys_error"
	}
	meta := BuildErrorLog(sys.Err)
	all := []zap.Field{
		zap.String("err_type", "sys"),
		zap.String("action", action),
		zap.String("error", meta.Error),
	}
	if meta.Code != "" {
		all = append(all, zap.String("error_code", meta.Code))
	}
	if meta.Reason != "" {
		all = append(all, zap.String("reason", meta.Reason))
	}
	if len(meta.Data) > 0 {
		all = append(all, zap.Any("error_data", meta.Data))
	}
	if len(meta.CauseChain) > 0 {
		all = append(all, zap.Strings("cause_chain", meta.CauseChain))
	}
	if meta.Origin != "" {
		all = append(all, zap.String("origin_caller", meta.Origin), zap.String("stack_origin", meta.Stack))
	}
	l.WithContext(ctx).Error(action, append(all, fields...)...)
}
