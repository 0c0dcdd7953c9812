package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petmvp/passportview/internal/config"
	"github.com/petmvp/passportview/internal/exporter"
	"github.com/petmvp/passportview/internal/i18n"
)

func TestInit(t *testing.T) {
	cfg := config.Default()

	services, err := Init(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, services.Backend)
	assert.NotNil(t, services.Controller)
	assert.NotNil(t, services.Access)
	assert.Equal(t, []exporter.Format{exporter.FormatHTML, exporter.FormatJSON, exporter.FormatPDF},
		services.Exporters.SupportedFormats())
	assert.Equal(t, services.Backend, services.Controller.Backend())
}

func TestInit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{name: "bad backend url", modify: func(c *config.Config) { c.Backend.BaseURL = "://nope" }},
		{name: "missing skeleton", modify: func(c *config.Config) { c.Render.Skeleton = "testdata/does-not-exist.html" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)
			_, err := Init(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestInitExporters_PDFOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Export.PDF.PaperWidth = 8.27
	cfg.Export.PDF.PaperHeight = 11.69
	cfg.Export.PDF.Timeout = 5
	cfg.Export.PDF.ChromePath = "/usr/bin/chromium"
	cfg.Export.PDF.PrintBackground = false
	cfg.Backend.BaseURL = "https://pets.example.org"

	m := InitExporters(cfg, nil)
	exp, err := m.Get(exporter.FormatPDF)
	require.NoError(t, err)

	opts := exp.(*exporter.PDFExporter).Options()
	assert.Equal(t, 8.27, opts.PaperWidth)
	assert.Equal(t, 11.69, opts.PaperHeight)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, "/usr/bin/chromium", opts.ChromePath)
	assert.False(t, opts.PrintBackground)
	assert.Equal(t, "https://pets.example.org", opts.AssetBaseURL)
	assert.Equal(t, exporter.DefaultPDFOptions().MarginTop, opts.MarginTop)
}

func TestInitAccess_GeneratesSecret(t *testing.T) {
	cfg := config.Default()
	tr := i18n.MustNew()

	a, err := InitAccess(cfg, nil, tr)
	require.NoError(t, err)
	b, err := InitAccess(cfg, nil, tr)
	require.NoError(t, err)

	grant, err := a.Issue("42", "BG01AB123456")
	require.NoError(t, err)
	pk, _, err := a.ValidateToken(grant.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", pk)

	_, _, err = b.ValidateToken(grant.Token)
	assert.Error(t, err, "each generated secret is distinct")

	cfg.Access.JWTSecret = "a-configured-secret-that-is-long-enough"
	c, err := InitAccess(cfg, nil, tr)
	require.NoError(t, err)
	d, err := InitAccess(cfg, nil, tr)
	require.NoError(t, err)
	grant, err = c.Issue("7", "BG01AB123456")
	require.NoError(t, err)
	_, _, err = d.ValidateToken(grant.Token)
	assert.NoError(t, err)
}
