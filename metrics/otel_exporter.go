package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	// OTel meters and instruments
	meter                 metric.Meter
	requestCounter        metric.Int64Counter
	threatCounter         metric.Int64Counter
	webhookCounter        metric.Int64Counter
	scanDuration          metric.Float64Histogram
	eventStatusGauge      metric.Int64ObservableGauge
	throttledClientsGauge metric.Int64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"pixshift-gateway",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	// Gateway decisions (per endpoint and outcome)
	oe.requestCounter, err = oe.meter.Int64Counter(
		"gateway.requests",
		metric.WithDescription("Requests authorized by the gateway, by endpoint and outcome"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return fmt.Errorf("creating request counter: %w", err)
	}

	// File scan threats (per kind and severity)
	oe.threatCounter, err = oe.meter.Int64Counter(
		"gateway.threats",
		metric.WithDescription("Threats found by the file scanner, by kind and severity"),
		metric.WithUnit("{threats}"),
	)
	if err != nil {
		return fmt.Errorf("creating threat counter: %w", err)
	}

	// Billing webhook outcomes (per event type and result)
	oe.webhookCounter, err = oe.meter.Int64Counter(
		"billing.webhook.events",
		metric.WithDescription("Billing webhook deliveries, by event type and result"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating webhook counter: %w", err)
	}

	// Scan latency
	oe.scanDuration, err = oe.meter.Float64Histogram(
		"gateway.scan.duration",
		metric.WithDescription("File scan duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating scan duration histogram: %w", err)
	}

	// Billing event state gauge (per state)
	oe.eventStatusGauge, err = oe.meter.Int64ObservableGauge(
		"billing.events.count",
		metric.WithDescription("Recorded billing events by state"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeEventStatusCounts),
	)
	if err != nil {
		return fmt.Errorf("creating event status gauge: %w", err)
	}

	// Throttled clients gauge
	oe.throttledClientsGauge, err = oe.meter.Int64ObservableGauge(
		"gateway.ratelimit.throttled",
		metric.WithDescription("Identities currently in a rate-limit denial streak"),
		metric.WithUnit("{clients}"),
		metric.WithInt64Callback(oe.observeThrottledClients),
	)
	if err != nil {
		return fmt.Errorf("creating throttled clients gauge: %w", err)
	}

	return nil
}

// RecordRequest counts one gateway decision.
func (oe *OTelExporter) RecordRequest(ctx context.Context, endpoint, outcome, reason string) {
	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	oe.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordThreat counts one scanner finding.
func (oe *OTelExporter) RecordThreat(ctx context.Context, kind, severity string) {
	oe.threatCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("threat.kind", kind),
		attribute.String("threat.severity", severity),
	))
}

// RecordWebhook counts one billing webhook delivery.
func (oe *OTelExporter) RecordWebhook(ctx context.Context, eventType, result string) {
	oe.webhookCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("result", result),
	))
}

// RecordScanDuration records one file scan's latency.
func (oe *OTelExporter) RecordScanDuration(ctx context.Context, d time.Duration) {
	oe.scanDuration.Record(ctx, d.Seconds())
}

// observeEventStatusCounts is a callback that reports billing event counts
func (oe *OTelExporter) observeEventStatusCounts(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetEventStatusCounts(ctx)
	if err != nil {
		return err
	}

	for status, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("event.status", status),
		))
	}

	return nil
}

// observeThrottledClients is a callback that reports throttled identities
func (oe *OTelExporter) observeThrottledClients(ctx context.Context, observer metric.Int64Observer) error {
	throttled, err := oe.collector.GetThrottledClients(ctx)
	if err != nil {
		return err
	}

	observer.Observe(throttled)
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
