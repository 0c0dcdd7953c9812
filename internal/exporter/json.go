package exporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petmvp/passportview/internal/render"
)

// Document is the JSON export of a passport view
type Document struct {
	RenderID       string                  `json:"render_id"`
	PassportNumber string                  `json:"passport_number"`
	Language       string                  `json:"language"`
	Status         string                  `json:"status"`
	Failed         []render.SectionFailure `json:"failed_sections"`
	Passport       json.RawMessage         `json:"passport"`
}

// JSONExporter exports the passport record as sent by the backend,
// together with the render outcome
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

func (e *JSONExporter) Export(_ context.Context, res *render.Result) ([]byte, error) {
	if res == nil || res.Record == nil {
		return nil, fmt.Errorf("nothing rendered")
	}
	doc := Document{
		RenderID:       res.RenderID,
		PassportNumber: res.Record.PassportNumber,
		Language:       res.Language,
		Status:         res.Status(),
		Failed:         res.Failed,
		Passport:       res.Record.Raw(),
	}
	if doc.Failed == nil {
		doc.Failed = []render.SectionFailure{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

func (e *JSONExporter) Name() string          { return "JSON" }
func (e *JSONExporter) ContentType() string   { return "application/json; charset=utf-8" }
func (e *JSONExporter) FileExtension() string { return ".json" }
