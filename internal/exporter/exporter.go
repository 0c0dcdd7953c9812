// Package exporter turns a rendered passport into downloadable documents.
package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/petmvp/passportview/consts"
	"github.com/petmvp/passportview/internal/render"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/logger"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// Format is an export format name
type Format string

const (
	// FormatHTML is the rendered booklet document
	FormatHTML Format = consts.ExportFormatHTML
	// FormatJSON is the passport record with the render outcome
	FormatJSON Format = consts.ExportFormatJSON
	// FormatPDF is the booklet printed through headless Chrome
	FormatPDF Format = consts.ExportFormatPDF
)

// ParseFormat validates a user supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatJSON, FormatPDF:
		return f, nil
	case "":
		return FormatHTML, nil
	default:
		return "", errors.ErrValidation(fmt.Sprintf("unsupported export format %q", s))
	}
}

// Exporter converts a rendered passport into one document format
type Exporter interface {
	Export(ctx context.Context, res *render.Result) ([]byte, error)
	// Name returns the human-readable name of the exporter (e.g., "HTML", "PDF")
	Name() string
	ContentType() string
	FileExtension() string
}

// Manager dispatches exports to the registered exporters
type Manager struct {
	exporters map[Format]Exporter
	metrics   *telemetry.Metrics
	mu        sync.RWMutex
}

// NewManager creates an empty export manager
func NewManager(metrics *telemetry.Metrics) *Manager {
	return &Manager{
		exporters: make(map[Format]Exporter),
		metrics:   metrics,
	}
}

// NewDefaultManager registers the HTML, JSON and PDF exporters
func NewDefaultManager(pdf PDFOptions, metrics *telemetry.Metrics) *Manager {
	m := NewManager(metrics)
	m.Register(FormatHTML, NewHTMLExporter())
	m.Register(FormatJSON, NewJSONExporter())
	m.Register(FormatPDF, NewPDFExporter(pdf))
	return m
}

// Register registers an exporter for a format
func (m *Manager) Register(format Format, exporter Exporter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exporters[format] = exporter
	logger.Debug("Registered passport exporter",
		zap.String("format", string(format)),
		zap.String("name", exporter.Name()),
	)
}

// Get returns the exporter registered for a format
func (m *Manager) Get(format Format) (Exporter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exporter, ok := m.exporters[format]
	if !ok {
		return nil, errors.ErrValidation(fmt.Sprintf("unsupported export format %q", format))
	}
	return exporter, nil
}

// Export exports a rendered passport in the given format
func (m *Manager) Export(ctx context.Context, res *render.Result, format Format) ([]byte, error) {
	exporter, err := m.Get(format)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "export."+string(format))
	defer span.End()
	telemetry.SetSpanAttributes(span, telemetry.AttrExportFormat.String(string(format)))

	start := time.Now()
	data, err := exporter.Export(ctx, res)
	m.metrics.RecordExport(ctx, string(format), err == nil, time.Since(start).Seconds())
	if err != nil {
		telemetry.SetSpanError(span, err)
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeExport, fmt.Sprintf("%s export failed", exporter.Name()), err)
	}

	logger.Debug("Exported passport",
		zap.String(logger.FieldRenderID, res.RenderID),
		zap.String("format", string(format)),
		zap.Int("size", len(data)),
	)
	return data, nil
}

// ExportToFile exports a rendered passport and writes it to outputPath
func (m *Manager) ExportToFile(ctx context.Context, res *render.Result, outputPath string, format Format) error {
	data, err := m.Export(ctx, res, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Info("Passport exported to file",
		zap.String(logger.FieldPassportNumber, res.Record.PassportNumber),
		zap.String("format", string(format)),
		zap.String("path", outputPath),
	)
	return nil
}

// Filename returns the download name of an export: "passport-BG01AB123456.pdf"
func (m *Manager) Filename(res *render.Result, format Format) string {
	ext := "." + string(format)
	if exporter, err := m.Get(format); err == nil {
		ext = exporter.FileExtension()
	}
	base := "passport"
	if res != nil && res.Record != nil {
		base = sanitizeFilename("passport-" + res.Record.PassportNumber)
	}
	return base + ext
}

// SupportedFormats returns the registered formats in name order
func (m *Manager) SupportedFormats() []Format {
	m.mu.RLock()
	defer m.mu.RUnlock()

	formats := make([]Format, 0, len(m.exporters))
	for format := range m.exporters {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// sanitizeFilename removes characters that are unsafe in file names
func sanitizeFilename(name string) string {
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)

	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	result = strings.Trim(result, "_")
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
