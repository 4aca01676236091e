package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Vikings/internal/shared/security"
	"Vikings/internal/shared/transport"
)

const ctxKeyUsername = "auth.username"

// Auth 校验 Bearer token，成功后把用户名放进 gin.Context。
// ws 握手无法带 header，允许用 ?token= 传入。
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, transport.Response{Code: transport.Unauthorized, Msg: "缺少令牌"})
			return
		}
		_, claims, err := security.ParseToken(raw)
		if err != nil || claims.Username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, transport.Response{Code: transport.Unauthorized, Msg: "令牌无效"})
			return
		}
		c.Set(ctxKeyUsername, claims.Username)
		transport.SetUser(c.Request.Context(), claims.Username)
		c.Next()
	}
}

// Username 读取 Auth 放入的用户名。
func Username(c *gin.Context) string {
	return c.GetString(ctxKeyUsername)
}
