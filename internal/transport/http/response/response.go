package response

import "github.com/gin-gonic/gin"

const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeTopicExists    = 40001
	CodeValidation     = 40002
	CodeUnauthorized   = 40100
	CodeNotFound       = 40400
	CodeNoUpload       = 40401
	CodeUnsupported    = 42200
	CodeInternalServer = 50000
	CodeUpstream       = 50200
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// ValidationFailed reports per-field problems under data.details.
func ValidationFailed(c *gin.Context, message string, details map[string]string) {
	c.JSON(400, APIResponse{
		Code:    CodeValidation,
		Message: message,
		Data: gin.H{
			"error":   message,
			"details": details,
		},
	})
}
