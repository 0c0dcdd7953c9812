package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petmvp/passportview/internal/accesscode"
	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/pkg/errors"
)

// AccessVerifier turns an access code into a view grant
type AccessVerifier interface {
	JoinCells(lang string, cells []string) (string, error)
	Verify(ctx context.Context, lang, code string) (*accesscode.Grant, error)
}

// AccessHandler handles access code verification
type AccessHandler struct {
	verifier    AccessVerifier
	defaultLang string
	debug       bool
}

// NewAccessHandler creates an access code handler
func NewAccessHandler(v AccessVerifier, defaultLang string, debug bool) *AccessHandler {
	return &AccessHandler{verifier: v, defaultLang: defaultLang, debug: debug}
}

// VerifyRequest is the body of an access code verification.
// Either Code or the six digit Cells of the access form must be set.
type VerifyRequest struct {
	Code  string   `json:"code"`
	Cells []string `json:"cells"`
}

// Verify handles POST /api/v1/access-codes/verify
func (h *AccessHandler) Verify(c *gin.Context) {
	lang := config.ResolveLanguage(c.Query("lang"), h.defaultLang)

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrValidation("Invalid request body"), h.debug)
		return
	}

	code := req.Code
	if code == "" && len(req.Cells) > 0 {
		joined, err := h.verifier.JoinCells(lang, req.Cells)
		if err != nil {
			respondError(c, err, h.debug)
			return
		}
		code = joined
	}

	grant, err := h.verifier.Verify(c.Request.Context(), lang, code)
	if err != nil {
		respondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, grant)
}
