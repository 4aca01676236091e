package handler

import (
	"Vikings/internal/authority/app"
	"Vikings/internal/shared/transport"
)

func init() {
	transport.RegisterCode(app.CodeMissingFields, transport.InvalidParam)
	transport.RegisterCode(app.CodeAttackerNotFound, transport.NotFound)
	transport.RegisterCode(app.CodeNotInClan, transport.Forbidden)
	transport.RegisterCode(app.CodeNotLeader, transport.Forbidden)
	transport.RegisterCode(app.CodeNoFortress, transport.InvalidParam)
	transport.RegisterCode(app.CodeSelfAttack, transport.InvalidParam)
	transport.RegisterCode(app.CodeUserNotFound, transport.NotFound)
}

// httpStatus 业务码与 HTTP 状态码一一对应，OK 之外都是错误状态。
func httpStatus(err error) int {
	code := transport.CodeFromError(err)
	if code == transport.OK {
		return 200
	}
	return int(code)
}
