package http

import "github.com/gin-gonic/gin"

// ErrorResponse 统一的错误响应格式。
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// SuccessResponse 统一的成功响应格式。
func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
