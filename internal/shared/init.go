// Package shared builds the rendering services used by both the server and the render command.
package shared

import (
	"strings"

	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/accesscode"
	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/booklet"
	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/internal/exporter"
	"github.com/petmvp/passportview/internal/i18n"
	"github.com/petmvp/passportview/internal/render"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/idgen"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// generatedSecretLength is the length of the view token secret generated when none is configured
const generatedSecretLength = 48

// Services are the components a passport view is served from
type Services struct {
	Backend    *backend.Client
	Controller *render.Controller
	Exporters  *exporter.Manager
	Access     *accesscode.Service
}

// Init builds every rendering service from configuration.
// metrics may be nil when telemetry is disabled.
func Init(cfg *config.Config, metrics *telemetry.Metrics) (*Services, error) {
	client, err := InitBackend(cfg, metrics)
	if err != nil {
		return nil, err
	}

	tr, err := i18n.New()
	if err != nil {
		return nil, err
	}

	controller, err := InitController(cfg, client, tr, metrics)
	if err != nil {
		return nil, err
	}

	access, err := InitAccess(cfg, client, tr)
	if err != nil {
		return nil, err
	}

	return &Services{
		Backend:    client,
		Controller: controller,
		Exporters:  InitExporters(cfg, metrics),
		Access:     access,
	}, nil
}

// InitBackend creates the backend REST client
func InitBackend(cfg *config.Config, metrics *telemetry.Metrics) (*backend.Client, error) {
	client, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout(), backend.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	logger.Info("Initialized backend client",
		zap.String("base_url", cfg.Backend.BaseURL),
		zap.Duration("timeout", cfg.Backend.RequestTimeout()),
	)
	return client, nil
}

// InitController loads the booklet skeleton and creates the render controller
func InitController(cfg *config.Config, b render.Backend, tr *i18n.Translator, metrics *telemetry.Metrics) (*render.Controller, error) {
	skeleton, err := booklet.New(cfg.Render.Skeleton)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded booklet skeleton",
		zap.String("source", skeleton.Source()),
	)

	return render.NewController(b, skeleton, tr, render.Options{
		DefaultLanguage:       cfg.Backend.DefaultLanguage,
		InternationalLanguage: cfg.Backend.InternationalLanguage,
		MaxLookups:            cfg.Render.MaxLookups,
		Metrics:               metrics,
	}), nil
}

// InitExporters registers the html, json and pdf exporters
func InitExporters(cfg *config.Config, metrics *telemetry.Metrics) *exporter.Manager {
	opts := exporter.DefaultPDFOptions()
	pdf := cfg.Export.PDF
	if pdf.PaperWidth > 0 {
		opts.PaperWidth = pdf.PaperWidth
	}
	if pdf.PaperHeight > 0 {
		opts.PaperHeight = pdf.PaperHeight
	}
	if pdf.Timeout > 0 {
		opts.Timeout = pdf.ExportTimeout()
	}
	opts.PrintBackground = pdf.PrintBackground
	opts.ChromePath = pdf.ChromePath
	opts.AssetBaseURL = cfg.Backend.BaseURL

	return exporter.NewDefaultManager(opts, metrics)
}

// InitAccess creates the access code service. When no secret is configured a
// random one is generated, so tokens do not survive a restart.
func InitAccess(cfg *config.Config, verifier accesscode.Verifier, tr *i18n.Translator) (*accesscode.Service, error) {
	secret := strings.TrimSpace(cfg.Access.JWTSecret)
	if secret == "" {
		var err error
		if secret, err = idgen.NewSecureSecret(generatedSecretLength); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to generate view token secret", err)
		}
		logger.Warn("access.jwt_secret is empty, generated a secret for this process only")
	}
	return accesscode.NewService(verifier, tr, secret, cfg.Access.TokenTTL()), nil
}
