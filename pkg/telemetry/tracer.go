package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of every passportview span
const TracerName = "github.com/petmvp/passportview"

// Span attribute keys
var (
	AttrRenderID       = attribute.Key("view.render_id")
	AttrPassportNumber = attribute.Key("view.passport_number")
	AttrLanguage       = attribute.Key("view.language")
	AttrSection        = attribute.Key("view.section")
	AttrFailedSections = attribute.Key("sections.failed")

	AttrBackendEndpoint = attribute.Key("backend.endpoint")
	AttrDoctorID        = attribute.Key("doctor.id")

	AttrExportFormat = attribute.Key("export.format")
)

// StartSpan starts an internal span; the caller ends it
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartBackendSpan starts the client span of one backend API call
func StartBackendSpan(ctx context.Context, endpoint string) (context.Context, trace.Span) {
	return StartSpan(ctx, "backend."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrBackendEndpoint.String(endpoint)),
	)
}

// WithViewAttributes identifies the passport view a span belongs to
func WithViewAttributes(renderID, passportNumber, language string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrRenderID.String(renderID),
		AttrPassportNumber.String(passportNumber),
		AttrLanguage.String(language),
	)
}

// AddEvent records a point-in-time event on the span active in ctx
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanError marks the span failed. A nil err leaves it untouched.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks the span successful
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SetSpanAttributes sets attributes on the span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}
