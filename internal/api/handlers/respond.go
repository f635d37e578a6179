package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Status    string      `json:"status"`
	ErrorCode int         `json:"error_code"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message"`
}

func respondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Data:    data,
		Message: message,
	})
}

// respondError keeps the transport status and the envelope error_code in
// step, the way every error leaves this API.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{
		Status:    "error",
		ErrorCode: status,
		Message:   message,
	})
}
