package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	claimsAdjudicated  metric.Int64Counter
	adjudicationErrors metric.Int64Counter
	ruleExecutions     metric.Int64Counter
	batchRuns          metric.Int64Counter
	decisionLatency    metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "vitalis"
	}
	meter := provider.Meter(name)

	claimsAdjudicated, err := meter.Int64Counter("vitalis_claims_adjudicated_total")
	if err != nil {
		return nil, err
	}
	adjudicationErrors, err := meter.Int64Counter("vitalis_adjudication_errors_total")
	if err != nil {
		return nil, err
	}
	ruleExecutions, err := meter.Int64Counter("vitalis_rule_executions_total")
	if err != nil {
		return nil, err
	}
	batchRuns, err := meter.Int64Counter("vitalis_batch_runs_total")
	if err != nil {
		return nil, err
	}
	decisionLatency, err := meter.Float64Histogram("vitalis_adjudication_duration_ms")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		claimsAdjudicated:  claimsAdjudicated,
		adjudicationErrors: adjudicationErrors,
		ruleExecutions:     ruleExecutions,
		batchRuns:          batchRuns,
		decisionLatency:    decisionLatency,
	}, nil
}

// RecordAdjudication increments the per-decision claim counter and latency.
func (m *Metrics) RecordAdjudication(ctx context.Context, decision string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("decision", strings.TrimSpace(decision)))
	m.claimsAdjudicated.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.decisionLatency.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordAdjudicationError increments fatal adjudication error counts.
func (m *Metrics) RecordAdjudicationError(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.adjudicationErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRuleExecution increments rule execution counts per result.
func (m *Metrics) RecordRuleExecution(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.ruleExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBatchRun increments batch run counts.
func (m *Metrics) RecordBatchRun(ctx context.Context) {
	if m == nil {
		return
	}
	m.batchRuns.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"decision": {},
	"result":   {},
	"reason":   {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
