package api

import (
	"github.com/gin-gonic/gin"

	"docksign/internal/api/middleware"
)

// userIDFromContext 读取鉴权中间件注入的请求者身份。
func userIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
