// telemetry/tracing.go
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName  = "github.com/chhz0/dispatchr"
	serviceName = "dispatchr"
)

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// ShutdownFunc 进程退出前调用，刷新未导出的 span
type ShutdownFunc func(context.Context) error

// InitTraceProvider endpoint 为空时不启用导出，全局 provider 保持 noop
func InitTraceProvider(ctx context.Context, endpoint, version string) (ShutdownFunc, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(version)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newResource(version string) *resource.Resource {
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(version),
	)
}

// StartOrderSpan 订单流程的父 span，分发器的 span 挂在其下
func StartOrderSpan(ctx context.Context, orderID, ct, ch string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "order.process",
		trace.WithAttributes(
			attribute.String("dispatchr.order.id", orderID),
			attribute.String("dispatchr.order.customer_type", ct),
			attribute.String("dispatchr.order.channel", ch),
		))
}

// RecordError 标记 span 失败
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
