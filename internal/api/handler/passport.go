package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/api/middleware"
	"github.com/petmvp/passportview/internal/exporter"
	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/internal/model"
	"github.com/petmvp/passportview/internal/render"
	"github.com/petmvp/passportview/internal/store"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/idgen"
	"github.com/petmvp/passportview/pkg/logger"
)

const defaultViewListLimit = 20

// Renderer renders one passport view
type Renderer interface {
	View(ctx context.Context, number string, opts render.ViewOptions) (*render.Result, error)
}

// PassportHandler serves rendered passports and their view log
type PassportHandler struct {
	renderer  Renderer
	exporters *exporter.Manager
	views     store.ViewLogStore
	debug     bool
}

// NewPassportHandler creates a passport handler.
// views may be nil, in which case views are not logged.
func NewPassportHandler(r Renderer, exporters *exporter.Manager, views store.ViewLogStore, debug bool) *PassportHandler {
	return &PassportHandler{
		renderer:  r,
		exporters: exporters,
		views:     views,
		debug:     debug,
	}
}

// View handles GET /passports/:number
// Query parameters:
//   - lang: national language of the booklet (default from config)
//   - section: page shown first (default cover)
func (h *PassportHandler) View(c *gin.Context) {
	h.serve(c, exporter.FormatHTML, false)
}

// Export handles GET /api/v1/passports/:number/export
// Query parameters:
//   - format: html, pdf or json (default html)
//   - lang, section: as for View
func (h *PassportHandler) Export(c *gin.Context) {
	kind, err := exporter.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, err, h.debug)
		return
	}
	h.serve(c, kind, true)
}

func (h *PassportHandler) serve(c *gin.Context, kind exporter.Format, attachment bool) {
	opts := render.ViewOptions{
		Language: c.Query("lang"),
		Section:  c.Query("section"),
		RenderID: idgen.NewRenderID(),
	}
	c.Header("X-Render-ID", opts.RenderID)

	start := time.Now()
	res, err := h.renderer.View(c.Request.Context(), c.Param("number"), opts)
	if err != nil {
		h.record(c, kind, opts, nil, err, time.Since(start))
		respondError(c, err, h.debug)
		return
	}

	data, err := h.exporters.Export(c.Request.Context(), res, kind)
	if err != nil {
		h.record(c, kind, opts, res, err, time.Since(start))
		respondError(c, err, h.debug)
		return
	}
	h.record(c, kind, opts, res, nil, time.Since(start))

	exp, _ := h.exporters.Get(kind)
	if attachment {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exporters.Filename(res, kind)))
	}
	c.Data(http.StatusOK, exp.ContentType(), data)
}

// record stores a view log entry. Requests rejected as invalid are not logged.
func (h *PassportHandler) record(c *gin.Context, kind exporter.Format, opts render.ViewOptions, res *render.Result, viewErr error, elapsed time.Duration) {
	if h.views == nil || errors.HasCode(viewErr, errors.ErrCodeValidation) {
		return
	}

	entry := &model.ViewLog{
		RenderID:   opts.RenderID,
		Method:     model.ViewMethod(kind),
		Section:    opts.Section,
		Language:   opts.Language,
		Status:     model.ViewStatusFailed,
		DurationMs: elapsed.Milliseconds(),
		ClientIP:   c.ClientIP(),
		AccessPK:   c.GetString(middleware.ContextKeyAccessPK),
	}
	if res != nil {
		entry.PassportNumber = res.Record.PassportNumber
		entry.Language = res.Language
		entry.Section = res.Section
		for _, f := range res.Failed {
			entry.FailedSections = append(entry.FailedSections, f.Section)
		}
		if viewErr == nil {
			entry.Status = model.ViewStatus(res.Status())
		}
	} else {
		entry.PassportNumber = format.NormalizePassportNumber(c.Param("number"))
	}
	if viewErr != nil {
		entry.Error = viewErr.Error()
	}

	if err := h.views.Create(entry); err != nil {
		logger.Warn("Failed to record passport view",
			zap.String(logger.FieldRenderID, opts.RenderID),
			zap.Error(err),
		)
	}
}

// ListViews handles GET /api/v1/passports/:number/views
// Query parameters:
//   - limit: maximum entries returned (default 20)
//   - offset: entries skipped
//   - status: ok, partial or failed
func (h *PassportHandler) ListViews(c *gin.Context) {
	if h.views == nil {
		respondError(c, errors.ErrNotFound("view log"), h.debug)
		return
	}

	limit, err := queryInt(c, "limit", defaultViewListLimit)
	if err != nil {
		respondError(c, err, h.debug)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, err, h.debug)
		return
	}
	status := model.ViewStatus(c.Query("status"))
	switch status {
	case "", model.ViewStatusOK, model.ViewStatusPartial, model.ViewStatusFailed:
	default:
		respondError(c, errors.ErrValidation("Invalid status parameter. Must be one of: ok, partial, failed"), h.debug)
		return
	}

	number := format.NormalizePassportNumber(c.Param("number"))
	if !format.ValidPassportNumber(number) {
		respondError(c, errors.ErrValidation(fmt.Sprintf("invalid passport number %q", number)), h.debug)
		return
	}
	views, total, err := h.views.List(model.ViewLogQuery{
		PassportNumber: number,
		Status:         status,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		respondError(c, errors.Wrap(errors.ErrCodeDBQuery, "Failed to list views", err), h.debug)
		return
	}
	counts, err := h.views.CountByStatus(number)
	if err != nil {
		respondError(c, errors.Wrap(errors.ErrCodeDBQuery, "Failed to count views", err), h.debug)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"passport_number": number,
		"total":           total,
		"by_status":       counts,
		"views":           views,
	})
}

// GetView handles GET /api/v1/passports/:number/views/:render_id.
// An entry of another passport is reported as not found.
func (h *PassportHandler) GetView(c *gin.Context) {
	if h.views == nil {
		respondError(c, errors.ErrNotFound("view log"), h.debug)
		return
	}
	number := format.NormalizePassportNumber(c.Param("number"))
	if !format.ValidPassportNumber(number) {
		respondError(c, errors.ErrValidation(fmt.Sprintf("invalid passport number %q", number)), h.debug)
		return
	}

	view, err := h.views.GetByRenderID(c.Param("render_id"))
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeNotFound) {
			err = errors.Wrap(errors.ErrCodeDBQuery, "Failed to load view", err)
		}
		respondError(c, err, h.debug)
		return
	}
	if view.PassportNumber != number {
		respondError(c, errors.ErrNotFound("view log"), h.debug)
		return
	}
	c.JSON(http.StatusOK, view)
}
