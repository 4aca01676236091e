package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"Vikings/internal/shared/transport"
	"Vikings/modules/kit/logx"
	"Vikings/modules/kit/tracex"
)

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(data []byte) (int, error) {
	_, _ = w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	_, _ = w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// TraceHeader 上游带来的 trace id，响应里原样回写。
const TraceHeader = "X-Trace-Id"

// AccessLog 为每个请求写一条访问日志，业务码和原因优先取响应体的 code/reason 字段。
func AccessLog(span string, log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		action := c.Request.Method + " " + route

		parent := c.Request.Context()
		if id := c.GetHeader(TraceHeader); id != "" {
			parent = tracex.WithTraceID(parent, id)
		}
		ctx := transport.NewContextWithParent(parent, span, action)
		c.Request = c.Request.WithContext(ctx)
		if id, ok := tracex.TraceIDFrom(ctx); ok {
			c.Header(TraceHeader, id)
		}

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = bw

		c.Next()

		body := parseBody(bw.body.Bytes())
		switch {
		case body.Code != nil:
			transport.SetBizCode(ctx, transport.BizCode(*body.Code))
			transport.SetErrorReason(ctx, body.Reason)
		case c.Writer.Status() >= http.StatusInternalServerError:
			transport.SetBizCode(ctx, transport.SystemError)
		case c.Writer.Status() >= http.StatusBadRequest:
			transport.SetBizCode(ctx, transport.BizCode(c.Writer.Status()))
		default:
			transport.SetBizCode(ctx, transport.OK)
		}

		transport.WriteAccessLog(ctx, log)
	}
}

type respBody struct {
	Code   *int   `json:"code"`
	Reason string `json:"reason"`
}

// parseBody 只认 {"code":..,"reason":..} 形式，权威方接口的 {"success":..} 解析不出 code。
func parseBody(body []byte) respBody {
	var out respBody
	if len(body) == 0 || body[0] != '{' {
		return out
	}
	_ = json.Unmarshal(body, &out)
	return out
}
