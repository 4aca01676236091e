package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Vikings/modules/kit/logx"
)

// OnConnect 升级成功后调用，返回前连接已开始读写。
type OnConnect func(r *http.Request, conn WSConn)

type Server struct {
	upgrader websocket.Upgrader
	onConn   OnConnect
	log      logx.Logger
}

func NewServer(onConn OnConnect, l logx.Logger) *Server {
	if l == nil {
		l = logx.Nop()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			// 允许所有跨域请求，鉴权由上层中间件完成
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		onConn: onConn,
		log:    l,
	}
}

func (s *Server) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	wsConn, err := s.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	conn := NewWsServer(wsConn, s.log)
	conn.Run()
	if s.onConn != nil {
		s.onConn(req, conn)
	}
}
