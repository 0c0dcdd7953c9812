// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/petmvp/passportview/pkg/errors"
)

// respondError writes err as a {code, message, details} body.
// Non-application errors and 5xx messages are hidden unless debug is set.
func respondError(c *gin.Context, err error, debug bool) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.ErrInternal("Internal server error", err)
	}

	status := appErr.HTTPStatus()
	body := gin.H{"code": appErr.Code, "message": appErr.Message}
	if status >= http.StatusInternalServerError && !debug {
		body["message"] = "Internal server error"
	}
	if appErr.Details != nil && (debug || status < http.StatusInternalServerError) {
		body["details"] = appErr.Details
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.ErrValidation("Invalid " + key + " parameter")
	}
	return v, nil
}
