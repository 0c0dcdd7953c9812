package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/logger"
)

// TokenQueryParam carries the view token on links a browser opens directly,
// where no Authorization header can be set.
const TokenQueryParam = "token"

// PassportParam is the route parameter holding the requested passport number
const PassportParam = "number"

// TokenValidator validates a view token and returns the pk and passport number it grants
type TokenValidator interface {
	ValidateToken(token string) (pk, passportNumber string, err error)
}

// JWTAuth requires a view token, from a Bearer Authorization header or the
// token query parameter, and stores the granted pk under ContextKeyAccessPK.
// On routes with a passport number the token must have been issued for that
// passport; any other passport is forbidden.
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := viewToken(c)
		if msg != "" {
			abort(c, http.StatusUnauthorized, errors.ErrCodeUnauthorized, msg)
			return
		}

		pk, granted, err := validator.ValidateToken(token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("View token validation failed", zap.Error(err))
			abort(c, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		if requested, ok := c.Params.Get(PassportParam); ok && format.NormalizePassportNumber(requested) != granted {
			logger.FromContext(c.Request.Context()).Info("View token used for another passport",
				zap.String("pk", pk),
				zap.String(logger.FieldPassportNumber, requested),
			)
			abort(c, http.StatusForbidden, errors.ErrCodeForbidden, "Token does not grant access to this passport")
			return
		}

		c.Set(ContextKeyAccessPK, pk)
		c.Next()
	}
}

// viewToken extracts the token, or returns the message explaining why it is missing
func viewToken(c *gin.Context) (token, problem string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token = c.Query(TokenQueryParam); token != "" {
			return token, ""
		}
		return "", "Authorization header required"
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", "Invalid authorization format"
	}
	return token, ""
}
