package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 认证中间件
// 检查请求是否携带有效的 Bearer token。
// 账号体系与令牌签发由外部认证服务负责，这里只做携带与形态校验。
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "missing authorization token",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" || token == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "malformed authorization header",
			})
			c.Abort()
			return
		}

		if len(token) < 10 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "invalid authorization token",
			})
			c.Abort()
			return
		}

		// 将 token 存入上下文，作为报告归属标识
		c.Set("token", token)
		c.Next()
	}
}

// OwnerID 从上下文取出请求方标识（未认证路由返回空串）
func OwnerID(c *gin.Context) string {
	if v, ok := c.Get("token"); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}
