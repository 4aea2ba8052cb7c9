package seeplusplus

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the tracer name passed to otel.Tracer; there is no
// distributed propagation surface here (no forwarded trace-context header
// is ever read), so each request starts a fresh root span rather than
// extracting a parent from headers.
const tracerName = "see-plus-plus"

// startRequestSpan opens a span named "<method> <path>" with the standard
// server-kind attributes RequestTask needs for diagnosing one dispatch.
func startRequestSpan(req *Request, workerID int) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(
		context.Background(),
		req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindServer),
	)
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.target", req.Path),
		attribute.Int("worker.id", workerID),
	)
	return ctx, span
}

// finishRequestSpan records the outcome of one RequestTask dispatch and
// closes the span.
func finishRequestSpan(span trace.Span, status int, keepAlive bool, err error) {
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Bool("http.keep_alive", keepAlive),
	)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= 400:
		span.SetStatus(codes.Error, "request failed")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
