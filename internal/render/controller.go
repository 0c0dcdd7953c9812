package render

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/booklet"
	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/internal/dom"
	"github.com/petmvp/passportview/internal/format"
	"github.com/petmvp/passportview/internal/i18n"
	"github.com/petmvp/passportview/internal/passport"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/idgen"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// View status values used in metrics and the view log
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Options configures a Controller
type Options struct {
	DefaultLanguage       string
	InternationalLanguage string
	// MaxLookups bounds concurrent doctor lookups per section
	MaxLookups int
	Metrics    *telemetry.Metrics
}

// ViewOptions selects what one view shows
type ViewOptions struct {
	// Language is the requested national language; empty uses the default
	Language string
	// Section is the page shown first; empty shows the cover
	Section string
	// RenderID identifies the view in logs; generated when empty
	RenderID string
}

// SectionFailure records a page that could not be populated
type SectionFailure struct {
	Section string `json:"section"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Result is a rendered passport
type Result struct {
	RenderID string
	Language string
	Section  string
	Document *dom.Document
	Record   *passport.Record
	Failed   []SectionFailure
	Duration time.Duration
}

// Status summarizes the result for logs and metrics
func (r *Result) Status() string {
	if len(r.Failed) > 0 {
		return StatusPartial
	}
	return StatusOK
}

// Controller renders passports into the booklet skeleton
type Controller struct {
	backend  Backend
	skeleton *booklet.Skeleton
	tr       *i18n.Translator
	opts     Options
}

// NewController creates a controller
func NewController(b Backend, skeleton *booklet.Skeleton, tr *i18n.Translator, opts Options) *Controller {
	if opts.InternationalLanguage == "" {
		opts.InternationalLanguage = "en"
	}
	return &Controller{
		backend:  b,
		skeleton: skeleton,
		tr:       tr,
		opts:     opts,
	}
}

// View fetches a passport and renders every page of the booklet.
// A page that cannot be populated keeps its skeleton content and is
// reported in Result.Failed; only failures before the first page is
// populated are returned as errors.
func (c *Controller) View(ctx context.Context, number string, opts ViewOptions) (*Result, error) {
	start := time.Now()

	number = format.NormalizePassportNumber(number)
	if !format.ValidPassportNumber(number) {
		return nil, errors.ErrValidation(fmt.Sprintf("invalid passport number %q", number))
	}
	section := opts.Section
	if section == "" {
		section = passport.Cover.Name
	}
	if _, ok := passport.Lookup(section); !ok {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown section %q", section))
	}
	renderID := opts.RenderID
	if renderID == "" {
		renderID = idgen.NewRenderID()
	}
	lang := config.ResolveLanguage(opts.Language, c.opts.DefaultLanguage)
	intl := config.ResolveLanguage(c.opts.InternationalLanguage, "en")

	log := logger.WithView(renderID, number)
	ctx = logger.NewContext(ctx, log)
	ctx, span := telemetry.StartSpan(ctx, "render.view", telemetry.WithViewAttributes(renderID, number, lang))
	defer span.End()

	m := c.opts.Metrics
	m.RecordViewStarted(ctx, lang)

	fail := func(err error) (*Result, error) {
		telemetry.SetSpanError(span, err)
		m.RecordViewCompleted(ctx, StatusFailed, time.Since(start).Seconds())
		log.Error("Passport view failed", zap.Error(err))
		return nil, err
	}

	rec, err := c.backend.GetPassport(ctx, lang, number)
	if err != nil {
		return fail(err)
	}
	for _, problem := range rec.Validate() {
		log.Warn("Passport section numbering", zap.String("problem", problem))
	}

	doc, err := c.skeleton.Document()
	if err != nil {
		return fail(err)
	}

	countries, err := c.backend.GetCountryChoices(ctx, lang)
	if err != nil {
		log.Warn("Country list unavailable, printing country codes", zap.Error(err))
		countries = nil
	}

	v := &View{
		Record:            rec,
		Doc:               doc,
		Lang:              lang,
		InternationalLang: intl,
		Countries:         countries,
		backend:           c.backend,
		tr:                c.tr,
		doctors:           newDoctorResolver(c.backend, lang, m),
		maxLookups:        c.opts.MaxLookups,
		log:               log,
	}

	if err := c.show(doc, section); err != nil {
		return fail(errors.Wrap(errors.ErrCodeSkeleton, "skeleton navigation", err))
	}

	result := &Result{
		RenderID: renderID,
		Language: lang,
		Section:  section,
		Document: doc,
		Record:   rec,
	}
	for _, schema := range passport.Booklet() {
		if err := c.populate(ctx, v, schema); err != nil {
			log.Warn("Section not rendered",
				zap.String(logger.FieldSection, schema.Name),
				zap.Error(err),
			)
			m.RecordSectionFailure(ctx, schema.Name)
			result.Failed = append(result.Failed, SectionFailure{
				Section: schema.Name,
				Message: err.Error(),
				Err:     errors.Wrap(errors.ErrCodeSectionRender, schema.Name, err),
			})
		}
	}

	result.Duration = time.Since(start)
	telemetry.SetSpanAttributes(span, telemetry.AttrFailedSections.Int(len(result.Failed)))
	telemetry.SetSpanOK(span)
	m.RecordViewCompleted(ctx, result.Status(), result.Duration.Seconds())
	log.Info("Passport rendered",
		zap.String("language", lang),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("took", result.Duration),
	)
	return result, nil
}

// show reveals the passport and the selected page
func (c *Controller) show(doc *dom.Document, section string) error {
	if err := DisplayElement(doc, "container", "passport"); err != nil {
		return err
	}
	if err := DisplayElement(doc, "section", section); err != nil {
		return err
	}
	return HighlightContents(doc, section)
}

// populate renders one page and stamps its footer. Panics stay local to the page.
func (c *Controller) populate(ctx context.Context, v *View, schema passport.Schema) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "render.section",
		trace.WithAttributes(telemetry.AttrSection.String(schema.Name)))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			telemetry.SetSpanError(span, err)
		}
		span.End()
	}()

	populator, err := PopulatorFor(schema)
	if err != nil {
		return err
	}
	if err := populator(ctx, v, schema); err != nil {
		return err
	}

	page, _, err := v.page(schema.Name)
	if err != nil {
		return err
	}
	AppendFooterOnce(page, v.Record.PassportNumber)
	return nil
}

// Backend returns the backend the controller renders from
func (c *Controller) Backend() Backend {
	return c.backend
}

var _ Backend = (*backend.Client)(nil)
