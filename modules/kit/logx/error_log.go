package logx

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorLog 是从错误链里提取出的可读信息。
type ErrorLog struct {
	Error      string
	Code       string
	Msg        string
	Reason     string
	Data       map[string]any
	CauseChain []string
	Origin     string
	Stack      string
}

// BuildErrorLog 解析 errx 风格的错误（按方法集识别，不直接依赖 errx）。
func BuildErrorLog(err error) ErrorLog {
	if err == nil {
		return ErrorLog{}
	}
	out := ErrorLog{Error: err.Error()}

	var code interface{ CodeText() string }
	if errors.As(err, &code) {
		out.Code = code.CodeText()
	}
	var msg interface{ Msg() string }
	if errors.As(err, &msg) {
		out.Msg = msg.Msg()
	}
	var data interface{ Data() map[string]any }
	if errors.As(err, &data) {
		out.Data = data.Data()
	}
	var reason interface{ Reason() string }
	if errors.As(err, &reason) {
		out.Reason = reason.Reason()
	}
	var stack interface{ Stack() []uintptr }
	if errors.As(err, &stack) {
		out.Origin, out.Stack = renderStack(stack.Stack(), 32)
	}
	for cur, i := errors.Unwrap(err), 0; cur != nil && i < 20; cur, i = errors.Unwrap(cur), i+1 {
		out.CauseChain = append(out.CauseChain, fmt.Sprintf("%T: %v", cur, cur))
	}
	return out
}

func renderStack(pcs []uintptr, limit int) (string, string) {
	if len(pcs) == 0 {
		return "", ""
	}
	frames := runtime.CallersFrames(pcs)
	var origin string
	lines := make([]string, 0, limit)
	for len(lines) < limit {
		f, more := frames.Next()
		if f.Function == "" && f.File == "" {
			break
		}
		line := fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line)
		if origin == "" {
			origin = line
		}
		lines = append(lines, line)
		if !more {
			break
		}
	}
	return origin, strings.Join(lines, "\n")
}
