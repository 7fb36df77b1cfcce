package log

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// WithDD enriches a logger with dd.trace_id / dd.span_id when ctx
// carries an active span. Datadog correlates on string ids.
func WithDD(ctx context.Context, base *zap.Logger, extra ...zap.Field) *zap.Logger {
	sp, ok := tracer.SpanFromContext(ctx)
	if !ok || sp == nil {
		return base.With(extra...)
	}
	sc, ok := sp.Context().(ddtrace.SpanContext)
	if !ok {
		return base.With(extra...)
	}
	extra = append(extra,
		zap.String("dd.trace_id", strconv.FormatUint(sc.TraceID(), 10)),
		zap.String("dd.span_id", strconv.FormatUint(sc.SpanID(), 10)),
	)
	return base.With(extra...)
}
