package telemetry

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/sdk/trace"
)

type tracePausedKey struct{}

// WithSkipSpan drops every span started under ctx.
func WithSkipSpan(ctx context.Context) context.Context {
	return context.WithValue(ctx, tracePausedKey{}, true)
}

// CustomSampler picks a sampler by span name, falling back to a default.
type CustomSampler struct {
	defaultSampler trace.Sampler
	samplers       map[string]trace.Sampler
}

func NewCustomSampler(defaultSampler trace.Sampler, samplers map[string]trace.Sampler) *CustomSampler {
	return &CustomSampler{
		defaultSampler: defaultSampler,
		samplers:       samplers,
	}
}

func (cs *CustomSampler) ShouldSample(params trace.SamplingParameters) trace.SamplingResult {
	if params.ParentContext != nil && params.ParentContext.Value(tracePausedKey{}) != nil {
		return trace.SamplingResult{Decision: trace.Drop}
	}
	if sampler, ok := cs.samplers[params.Name]; ok {
		return sampler.ShouldSample(params)
	}
	return cs.defaultSampler.ShouldSample(params)
}

func (cs *CustomSampler) Description() string {
	return "CustomSampler"
}

// CounterSampler keeps one span out of every 100/percentage.
type CounterSampler struct {
	counter atomic.Int64
	rate    int64
}

// NewCounterSampler creates a new CounterSampler.
// `percentage` should be a value between 0 and 100, representing the percentage of spans to sample.
func NewCounterSampler(percentage float64) *CounterSampler {
	rate := int64(100.0 / percentage)
	if rate < 1 {
		rate = 1
	}
	return &CounterSampler{rate: rate}
}

func (cs *CounterSampler) ShouldSample(params trace.SamplingParameters) trace.SamplingResult {
	count := cs.counter.Add(1)

	// Sample the first span in each cycle
	if cs.rate == 1 || count%cs.rate == 1 {
		return trace.SamplingResult{Decision: trace.RecordAndSample}
	}
	return trace.SamplingResult{Decision: trace.Drop}
}

func (cs *CounterSampler) Description() string {
	return "CounterSampler"
}
