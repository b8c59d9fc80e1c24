package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	batchUsers    otelmetric.Int64Counter
	batchMatches  otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)

	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	batchUsers, _ := meter.Int64Counter(
		"matching.users.processed",
		otelmetric.WithDescription("Users processed by matching batches"),
	)

	batchMatches, _ := meter.Int64Counter(
		"matching.matches.written",
		otelmetric.WithDescription("Matches created or updated by matching batches"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		batchUsers:    batchUsers,
		batchMatches:  batchMatches,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

// RecordBatchOutcome records batch-level totals after a matching run.
func (o *Observability) RecordBatchOutcome(ctx context.Context, usersProcessed, matchesCreated, matchesUpdated int, status string) {
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	if o.batchUsers != nil {
		o.batchUsers.Add(ctx, int64(usersProcessed), attrs)
	}
	if o.batchMatches != nil {
		o.batchMatches.Add(ctx, int64(matchesCreated), otelmetric.WithAttributes(
			attribute.String("status", status),
			attribute.String("outcome", "created"),
		))
		o.batchMatches.Add(ctx, int64(matchesUpdated), otelmetric.WithAttributes(
			attribute.String("status", status),
			attribute.String("outcome", "updated"),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
