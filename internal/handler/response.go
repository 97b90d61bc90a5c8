// Package handler holds the HTTP response envelope shared by all route
// handlers.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mzemr/record-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Detail  interface{} `json:"detail,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error writes err as the envelope, mapping application errors onto
// their HTTP status and hiding internals behind a generic message.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, &Response{
			Status:  "error",
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Detail:  appErr.Detail,
		})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, &Response{
		Status:  "error",
		Code:    string(apperrors.CodeInternal),
		Message: "服务器内部错误",
	})
}
