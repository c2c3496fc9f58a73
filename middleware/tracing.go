// middleware/tracing.go
package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/chhz0/dispatchr"

// 链路追踪中间件，tracer 为空时使用全局 provider
func Tracing[P, R any](tracer trace.Tracer, registry string) Middleware[P, R] {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return func(next Handler[P, R]) Handler[P, R] {
		return func(ctx context.Context, payload P) (R, error) {
			ctx, span := tracer.Start(ctx, "dispatch "+registry,
				trace.WithAttributes(
					attribute.String("dispatch.registry", registry),
					attribute.String("dispatch.key", keyLabel(ctx)),
				))
			defer span.End()

			res, err := next(ctx, payload)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return res, err
		}
	}
}
