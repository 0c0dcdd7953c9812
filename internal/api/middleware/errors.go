package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petmvp/passportview/pkg/errors"
)

// ErrorHandler renders errors attached with c.Error when the handler wrote no response.
// Outside debug mode 5xx messages and all details are hidden.
func ErrorHandler(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		status, body := errorBody(c.Errors.Last().Err, debugMode)
		c.JSON(status, body)
	}
}

func errorBody(err error, debugMode bool) (int, gin.H) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.ErrInternal(err.Error(), nil)
	}
	status := appErr.HTTPStatus()

	body := gin.H{"code": appErr.Code, "message": appErr.Message}
	if status >= http.StatusInternalServerError && !debugMode {
		body["message"] = "Internal server error"
	}
	if debugMode && appErr.Details != nil {
		body["details"] = appErr.Details
	}
	return status, body
}
