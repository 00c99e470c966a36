package common

import (
	"github.com/gin-gonic/gin"
)

// Response is the envelope every API handler writes.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse writes a success envelope with data
func SuccessResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// ErrorResponse writes an error envelope
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: status, Message: message},
	})
}

// ErrorResponseWithDetails writes an error envelope carrying field details
func ErrorResponseWithDetails(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: status, Message: message, Details: details},
	})
}

// AppErrorResponse writes err using its status code
func AppErrorResponse(c *gin.Context, err error) {
	appErr := AsAppError(err)
	ErrorResponse(c, appErr.Code, appErr.Message)
}
