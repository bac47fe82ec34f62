package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-guide-backend/internal/config"
)

// Resource attribute keys describing how the engine answers.
const (
	AttrGuideProvider   = attribute.Key("guide.provider")
	AttrGuideModel      = attribute.Key("guide.model")
	AttrGuideStreamMode = attribute.Key("guide.stream_mode")
)

// ServiceInfo identifies the running engine on every exported span.
type ServiceInfo struct {
	Name       string
	Version    string
	Provider   string
	Model      string
	StreamMode string
}

// InfoFromConfig fills ServiceInfo from the loaded configuration.
func InfoFromConfig(cfg config.Config, version string) ServiceInfo {
	return ServiceInfo{
		Name:       cfg.OTEL.ServiceName,
		Version:    version,
		Provider:   cfg.Guide.Provider,
		Model:      cfg.Guide.Model,
		StreamMode: cfg.Guide.StreamMode,
	}
}

// Attributes returns the resource attributes for info. An empty model is
// reported as "default" since the adapter then picks its own.
func (info ServiceInfo) Attributes() []attribute.KeyValue {
	model := strings.TrimSpace(info.Model)
	if model == "" {
		model = "default"
	}
	return []attribute.KeyValue{
		semconv.ServiceName(info.Name),
		semconv.ServiceVersion(info.Version),
		AttrGuideProvider.String(strings.ToLower(info.Provider)),
		AttrGuideModel.String(model),
		AttrGuideStreamMode.String(strings.ToLower(info.StreamMode)),
	}
}

// Swapped in tests.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newResourceFn = func(ctx context.Context, attrs ...attribute.KeyValue) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(attrs...))
	}
)

// sampler honours the parent decision and samples root spans by ratio.
// Ratios at the edges skip the ratio sampler entirely.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// SetupOTel installs an OTLP/gRPC tracer provider tagged with info and
// returns its shutdown. When tracing is disabled the globals are untouched
// and shutdown is a no-op.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, info ServiceInfo) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if info.Name == "" {
		info.Name = cfg.ServiceName
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newOTLPExporterFn(ctx, newOTLPClient(opts...))
	if err != nil {
		return nil, err
	}
	res, err := newResourceFn(ctx, info.Attributes()...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
