package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/go-guide-backend/internal/config"
)

// keepGlobals restores the OTel globals when the test ends.
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func enabled(name string) config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: true, Endpoint: "localhost:4317", ServiceName: name, SampleRatio: 1}
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]string {
	out := make(map[attribute.Key]string, len(attrs))
	for _, kv := range attrs {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestInfoFromConfig(t *testing.T) {
	cfg := config.Config{
		Guide: config.GuideConfig{Provider: "gemini", Model: "gemini-2.5-flash", StreamMode: "native"},
		OTEL:  config.OTELConfig{ServiceName: "guide-api"},
	}
	got := InfoFromConfig(cfg, "v1.4.0")
	want := ServiceInfo{Name: "guide-api", Version: "v1.4.0", Provider: "gemini", Model: "gemini-2.5-flash", StreamMode: "native"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestServiceInfo_Attributes(t *testing.T) {
	cases := []struct {
		name string
		info ServiceInfo
		want map[attribute.Key]string
	}{
		{
			name: "configured model",
			info: ServiceInfo{Name: "guide", Version: "v1", Provider: "OpenAI", Model: "gpt-4o-mini", StreamMode: "Native"},
			want: map[attribute.Key]string{
				"service.name": "guide", "service.version": "v1",
				AttrGuideProvider: "openai", AttrGuideModel: "gpt-4o-mini", AttrGuideStreamMode: "native",
			},
		},
		{
			name: "adapter default model",
			info: ServiceInfo{Name: "guide", Version: "dev", Provider: "scripted", Model: "  ", StreamMode: "simulated"},
			want: map[attribute.Key]string{
				"service.name": "guide", "service.version": "dev",
				AttrGuideProvider: "scripted", AttrGuideModel: "default", AttrGuideStreamMode: "simulated",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := attrMap(tc.info.Attributes())
			if len(got) != len(tc.want) {
				t.Fatalf("got %v", got)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestSampler(t *testing.T) {
	cases := map[float64]string{
		1:    "AlwaysOnSampler",
		2:    "AlwaysOnSampler",
		0:    "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "TraceIDRatioBased{0.25}",
	}
	for ratio, inner := range cases {
		if d := sampler(ratio).Description(); !strings.Contains(d, inner) || !strings.HasPrefix(d, "ParentBased") {
			t.Fatalf("sampler(%v) = %s", ratio, d)
		}
	}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	prev := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, ServiceInfo{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Fatalf("tracer provider replaced while disabled")
	}
}

func TestSetupOTel_ResourceCarriesGuideInfo(t *testing.T) {
	keepGlobals(t)
	orig := newResourceFn
	t.Cleanup(func() { newResourceFn = orig })

	var res *resource.Resource
	newResourceFn = func(ctx context.Context, attrs ...attribute.KeyValue) (*resource.Resource, error) {
		r, err := orig(ctx, attrs...)
		res = r
		return r, err
	}

	info := ServiceInfo{Version: "v2", Provider: "gemini", Model: "gemini-2.5-flash", StreamMode: "native"}
	shutdown, err := SetupOTel(context.Background(), enabled("guide-api"), info)
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("expected *sdktrace.TracerProvider")
	}
	if res == nil {
		t.Fatal("resource not built")
	}
	want := map[attribute.Key]string{
		"service.name":      "guide-api", // falls back to the OTEL service name
		AttrGuideProvider:   "gemini",
		AttrGuideModel:      "gemini-2.5-flash",
		AttrGuideStreamMode: "native",
	}
	for k, v := range want {
		got, ok := res.Set().Value(k)
		if !ok || got.Emit() != v {
			t.Fatalf("resource %s = %q (present=%v), want %q", k, got.Emit(), ok, v)
		}
	}

	carrier := propagation.MapCarrier{}
	ctx, span := otel.Tracer("guide-test").Start(context.Background(), "ConverseStream")
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	span.End()
	if carrier.Get("traceparent") == "" {
		t.Fatalf("traceparent not injected: %v", carrier)
	}
}

func TestSetupOTel_TLSBranch(t *testing.T) {
	keepGlobals(t)
	cfg := enabled("guide-tls")
	cfg.Insecure = false
	shutdown, err := SetupOTel(context.Background(), cfg, ServiceInfo{Version: "v1", Provider: "scripted"})
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSetupOTel_FailuresKeepGlobals(t *testing.T) {
	origExp, origRes := newOTLPExporterFn, newResourceFn
	t.Cleanup(func() { newOTLPExporterFn, newResourceFn = origExp, origRes })

	cases := []struct {
		name  string
		setup func()
	}{
		{"exporter", func() {
			newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
				return nil, errors.New("exporter down")
			}
		}},
		{"resource", func() {
			newResourceFn = func(context.Context, ...attribute.KeyValue) (*resource.Resource, error) {
				return nil, errors.New("bad resource")
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keepGlobals(t)
			newOTLPExporterFn, newResourceFn = origExp, origRes
			tc.setup()

			prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
			if _, err := SetupOTel(context.Background(), enabled("guide"), ServiceInfo{}); err == nil {
				t.Fatal("expected error")
			}
			if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
				t.Fatal("globals changed on failure")
			}
		})
	}
}
