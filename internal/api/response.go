package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"docksign/internal/api/middleware"
	"docksign/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// FromError 把 errcode 类别映射到 HTTP 状态码并输出响应。
// 引用完整性冲突按 400 暴露；internal 类错误细节只进日志。
func FromError(c *gin.Context, err error) {
	switch errcode.KindOf(err) {
	case errcode.KindValidation, errcode.KindConflict:
		BadRequest(c, errcode.MessageOf(err))
	case errcode.KindNotFound:
		NotFound(c, errcode.MessageOf(err))
	case errcode.KindUnauthorized:
		Unauthorized(c)
	default:
		middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		Internal(c, "internal error")
	}
}
