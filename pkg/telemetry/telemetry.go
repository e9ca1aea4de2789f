// Package telemetry wraps OpenTelemetry metrics (exported via Prometheus)
// around dispatch runs, following the same Provider shape the teacher uses
// for its workflow engine: a resource, a meter provider, and a handful of
// named instruments the engine increments at well-defined points.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	metricDispatchRuns       = "dispatch.runs.total"
	metricDispatchDuration   = "dispatch.duration.seconds"
	metricNodeEstimations    = "dispatch.node.estimations.total"
	metricNodeDuration       = "dispatch.node.duration.seconds"
	metricSoftFailures       = "dispatch.node.failures.total"
	metricCutoffRejections   = "dispatch.node.cutoff_rejections.total"
)

// Config controls what a Provider instruments.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableMetrics  bool
}

// DefaultConfig returns metrics enabled, named after this module.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "arcidispatch",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		EnableMetrics:  true,
	}
}

// Provider holds the instruments a dispatch run reports to.
type Provider struct {
	cfg Config

	dispatchRuns     metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	nodeEstimations  metric.Int64Counter
	nodeDuration     metric.Float64Histogram
	softFailures     metric.Int64Counter
	cutoffRejections metric.Int64Counter
}

// NewProvider builds a Provider backed by a Prometheus exporter. If metrics
// are disabled in cfg, it returns a Provider whose instrumentation calls
// are all safe no-ops.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if !cfg.EnableMetrics {
		return p, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: build prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)
	meter := mp.Meter(cfg.ServiceName)

	if p.dispatchRuns, err = meter.Int64Counter(metricDispatchRuns); err != nil {
		return nil, err
	}
	if p.dispatchDuration, err = meter.Float64Histogram(metricDispatchDuration); err != nil {
		return nil, err
	}
	if p.nodeEstimations, err = meter.Int64Counter(metricNodeEstimations); err != nil {
		return nil, err
	}
	if p.nodeDuration, err = meter.Float64Histogram(metricNodeDuration); err != nil {
		return nil, err
	}
	if p.softFailures, err = meter.Int64Counter(metricSoftFailures); err != nil {
		return nil, err
	}
	if p.cutoffRejections, err = meter.Int64Counter(metricCutoffRejections); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) RecordDispatchRun(ctx context.Context, durationSeconds float64, outcome string) {
	if p == nil || p.dispatchRuns == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	p.dispatchRuns.Add(ctx, 1, attrs)
	p.dispatchDuration.Record(ctx, durationSeconds, attrs)
}

func (p *Provider) RecordNodeEstimation(ctx context.Context, durationSeconds float64, nodeType string) {
	if p == nil || p.nodeEstimations == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("node_type", nodeType))
	p.nodeEstimations.Add(ctx, 1, attrs)
	p.nodeDuration.Record(ctx, durationSeconds, attrs)
}

func (p *Provider) RecordSoftFailure(ctx context.Context, nodeID string) {
	if p == nil || p.softFailures == nil {
		return
	}
	p.softFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("node_id", nodeID)))
}

func (p *Provider) RecordCutoffRejection(ctx context.Context, nodeID string) {
	if p == nil || p.cutoffRejections == nil {
		return
	}
	p.cutoffRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("node_id", nodeID)))
}
