package interview

import (
	"context"

	"recruiting-pipeline/internal/common/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "recruiting-pipeline/internal/interview"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startSpan(ctx context.Context, tracer trace.Tracer, name, applicantID, stageID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("applicant.id", applicantID),
		attribute.String("interview.stage", stageID),
	))
}

// endSpan marks the span failed with the error's code when err is set.
func endSpan(span trace.Span, err error) {
	if err != nil {
		code := errors.Normalize(err).Code
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.code", string(code)))
		span.SetStatus(codes.Error, string(code))
	}
	span.End()
}
