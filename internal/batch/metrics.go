package batch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.GetMeterProvider().Meter("llmbatch/internal/batch")

var (
	attemptCounter, _ = meter.Int64Counter(
		"llmbatch.call.attempts",
		metric.WithDescription("number of LLM call attempts, including retries"),
	)
	waitHistogram, _ = meter.Float64Histogram(
		"llmbatch.retry.wait_seconds",
		metric.WithDescription("backoff sleep duration before a retried call"),
		metric.WithUnit("s"),
	)
	temperatureHistogram, _ = meter.Float64Histogram(
		"llmbatch.retry.temperature",
		metric.WithDescription("temperature used for a call attempt"),
	)
)

func recordAttempt(ctx context.Context, temp float64) {
	attemptCounter.Add(ctx, 1)
	temperatureHistogram.Record(ctx, temp)
}

func recordWait(ctx context.Context, seconds float64) {
	waitHistogram.Record(ctx, seconds)
}
