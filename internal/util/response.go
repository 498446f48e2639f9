package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope every API endpoint replies with. Code is 0 on
// success and -1 on failure, mirroring the status field of the judge API.
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Data:    data,
		Message: message,
	})
}

func Error(c *gin.Context, status int, err interface{}) {
	msg := "Internal Server Error"
	switch e := err.(type) {
	case string:
		msg = e
	case error:
		msg = e.Error()
	}

	if status >= http.StatusInternalServerError {
		zap.S().Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, msg)
	} else {
		zap.S().Warnf("%s %s: %s", c.Request.Method, c.Request.URL.Path, msg)
	}

	c.JSON(status, Response{
		Code:    -1,
		Data:    nil,
		Message: msg,
	})
}
