package telemetry

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"

	"github.com/flanksource/commons/collections"
	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

// Telemetry flag vars
var OtelCollectorURL string
var OtelServiceName string
var OtelInsecure bool
var OtelSamples []string

func newClient() otlptrace.Client {
	if strings.HasPrefix(OtelCollectorURL, "http") {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(strings.TrimPrefix(strings.TrimPrefix(OtelCollectorURL, "https://"), "http://")),
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		}
		if OtelInsecure || strings.HasPrefix(OtelCollectorURL, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		} else {
			opts = append(opts, otlptracehttp.WithTLSClientConfig(&tls.Config{}))
		}
		return otlptracehttp.NewClient(opts...)
	}

	var secureOption otlptracegrpc.Option
	if !OtelInsecure {
		secureOption = otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
	} else {
		secureOption = otlptracegrpc.WithInsecure()
	}
	return otlptracegrpc.NewClient(secureOption, otlptracegrpc.WithEndpoint(OtelCollectorURL))
}

// newExporter writes spans to stdout when the collector url is "stdout", for local debugging.
func newExporter() (sdktrace.SpanExporter, error) {
	if OtelCollectorURL == "stdout" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return otlptrace.New(context.Background(), newClient())
}

// samplers parses name=percent pairs into per span samplers.
func samplers(pairs []string) map[string]sdktrace.Sampler {
	out := map[string]sdktrace.Sampler{}
	for name, perc := range collections.KeyValueSliceToMap(pairs) {
		value, err := strconv.ParseFloat(perc, 64)
		if err != nil || value <= 0 || value > 100 {
			logger.Warnf("ignoring invalid span sample %s=%s", name, perc)
			continue
		}
		out[name] = NewCounterSampler(value)
	}
	return out
}

// InitTracer installs a global OTLP tracer provider when a collector is configured.
// The returned function flushes and stops the exporter.
func InitTracer() func(context.Context) error {
	OtelCollectorURL = lo.CoalesceOrEmpty(OtelCollectorURL, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))

	if OtelCollectorURL == "" {
		return func(_ context.Context) error {
			return nil
		}
	}

	exporter, err := newExporter()
	if err != nil {
		logger.Errorf("failed to create opentelemetry exporter: %v", err)
		return func(_ context.Context) error { return nil }
	}
	logger.Infof("Sending traces to %s", OtelCollectorURL)

	var resourceAttrs []attribute.KeyValue
	resourceAttrs = append(resourceAttrs, attribute.String("service.name", OtelServiceName))
	if val, ok := os.LookupEnv("OTEL_LABELS"); ok {
		kv := collections.KeyValueSliceToMap(strings.Split(val, ","))
		for k, v := range kv {
			resourceAttrs = append(resourceAttrs, attribute.String(k, v))
		}
	}

	resources, err := resource.New(context.Background(), resource.WithAttributes(resourceAttrs...))
	if err != nil {
		logger.Errorf("could not set opentelemetry resources: %v", err)
		return func(_ context.Context) error { return nil }
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(NewCustomSampler(sdktrace.AlwaysSample(), samplers(OtelSamples))),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)

	// Register the TraceContext propagator globally.
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return func(ctx context.Context) error {
		logger.Debugf("Shutting down otel exporter")
		if err := exporter.Shutdown(ctx); err != nil {
			return err
		}
		logger.Debugf("Shutdown complete")
		return nil
	}
}
