package services

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/isdelr/postboard-be/internal/services"

var tracer = otel.Tracer(tracerName)

// builder renders squirrel statements with SQLite's "?" placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// startSpan opens a span for one service operation. Callers defer
// endSpan(span, &err) so the span captures the returned error.
func startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, opts...)
}

func endSpan(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	}
	span.End()
}
