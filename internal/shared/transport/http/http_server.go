package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	"Vikings/internal/shared/transport/http/middleware"
	"Vikings/modules/kit/logx"
)

type Server struct {
	engine *gin.Engine
	srv    *nethttp.Server
}

// NewHttpServer 挂好通用中间件和 /healthz；业务路由通过 Engine() 注册。
// span 标识服务名，写进每个请求的 trace 上下文。
func NewHttpServer(addr, span string, logger logx.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Cors(), middleware.AccessLog(span, logger))
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{
		engine: engine,
		srv: &nethttp.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start 阻塞运行；Shutdown 后返回 http.ErrServerClosed。
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Handler() nethttp.Handler {
	return s.engine
}
