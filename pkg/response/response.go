package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
// AppError 决定 HTTP 状态和业务码，其余错误一律按内部错误返回
func Error(c *gin.Context, err error) {
	c.JSON(apperrors.GetStatus(err), Response{
		Code:    apperrors.GetCode(err),
		Message: apperrors.GetMessage(err),
		Data:    nil,
	})
}

// BadRequest 参数解析失败
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    apperrors.CodeInvalidParams,
		Message: message,
		Data:    nil,
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    apperrors.CodeTokenInvalid,
		Message: message,
		Data:    nil,
	})
}
