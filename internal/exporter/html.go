package exporter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/petmvp/passportview/internal/render"
)

// HTMLExporter serializes the rendered booklet document
type HTMLExporter struct{}

// NewHTMLExporter creates an HTML exporter
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{}
}

// Export renders the document as HTML
func (e *HTMLExporter) Export(_ context.Context, res *render.Result) ([]byte, error) {
	if res == nil || res.Document == nil {
		return nil, fmt.Errorf("nothing rendered")
	}
	var buf bytes.Buffer
	if err := res.Document.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *HTMLExporter) Name() string          { return "HTML" }
func (e *HTMLExporter) ContentType() string   { return "text/html; charset=utf-8" }
func (e *HTMLExporter) FileExtension() string { return ".html" }
