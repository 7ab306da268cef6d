package facility

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type instruments struct {
	operations metric.Int64Counter
	occupancy  metric.Int64UpDownCounter
	duration   metric.Float64Histogram
	fees       metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	operations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of facility operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancy, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of facility operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	fees, err := meter.Int64Counter("parking_fees_collected_total",
		metric.WithDescription("Sum of fees charged at checkout"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &instruments{
		operations: operations,
		occupancy:  occupancy,
		duration:   duration,
		fees:       fees,
	}, nil
}

// observe opens a span for operation and returns the function that closes it
// and records the outcome.
func (s *Service) observe(
	ctx context.Context,
	operation string,
	attrs ...attribute.KeyValue,
) (context.Context, func(err error)) {
	ctx, span := s.tracer.Start(ctx, "facility."+operation, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		labels := metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		)

		s.metrics.operations.Add(ctx, 1, labels)
		s.metrics.duration.Record(ctx, time.Since(start).Seconds(), labels)

		span.End()
	}
}
