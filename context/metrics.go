package context

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/commons/text"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

var MetricsLogLevel = 5

func mapToSlice(c map[string]string) []any {
	args := []any{}
	for k, v := range c {
		if !lo.IsEmpty(v) {
			args = append(args, k, v)
		}
	}
	return args
}

// stringSliceToMap turns alternating key, value pairs into a label map.
func stringSliceToMap(labels []string) map[string]string {
	m := make(map[string]string, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		m[labels[i]] = labels[i+1]
	}
	return m
}

func metricKey(name string, labelMap map[string]string) (string, []string) {
	labelKeys := lo.Keys(labelMap)
	slices.Sort(labelKeys)
	return strings.Join(append(slices.Clone(labelKeys), name), "."), labelKeys
}

type Histogram struct {
	Context   Context
	Name      string
	Histogram *prometheus.HistogramVec
	Labels    map[string]string
}

var ctxHistograms sync.Map

var LatencyBuckets = []float64{
	float64(10 * time.Millisecond),
	float64(100 * time.Millisecond),
	float64(500 * time.Millisecond),
	float64(1 * time.Second),
	float64(10 * time.Second),
}

// Histogram returns a histogram registered once per name and label-set.
func (k Context) Histogram(name string, buckets []float64, labels ...string) Histogram {
	labelMap := stringSliceToMap(labels)
	key, labelKeys := metricKey(name, labelMap)

	if histo, exists := ctxHistograms.Load(key); exists {
		return Histogram{
			Context:   k,
			Histogram: histo.(*prometheus.HistogramVec),
			Name:      name,
			Labels:    labelMap,
		}
	}

	histo := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Buckets: buckets,
	}, labelKeys)

	if err := prometheus.Register(histo); err != nil {
		k.Errorf("error registering histogram[%s/%v]: %v", name, labels, err)
	}

	actual, _ := ctxHistograms.LoadOrStore(key, histo)
	return Histogram{
		Context:   k,
		Histogram: actual.(*prometheus.HistogramVec),
		Name:      name,
		Labels:    labelMap,
	}
}

func (h *Histogram) Label(k, v string) Histogram {
	h.Labels[k] = v
	return *h
}

func (h Histogram) Record(duration time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			h.Context.Errorf("error observe to histogram[%s/%v]: %v", h.Name, h.Labels, r)
		}
	}()

	if duration > time.Millisecond*5 {
		if logger := logger.GetLogger("metrics." + h.Name); logger.IsLevelEnabled(4) {
			logger.WithValues(mapToSlice(h.Labels)...).V(MetricsLogLevel).Infof("%s", text.HumanizeDuration(duration))
		}
	}

	h.Histogram.With(prometheus.Labels(h.Labels)).Observe(float64(duration))
}

func (h Histogram) Since(s time.Time) {
	h.Record(time.Since(s))
}

type Counter struct {
	Context Context
	Name    string
	Labels  map[string]string
	Counter *prometheus.CounterVec
}

var ctxCounters sync.Map

// Counter returns a counter registered once per name and label-set.
func (k Context) Counter(name string, labels ...string) Counter {
	labelMap := stringSliceToMap(labels)
	key, labelKeys := metricKey(name, labelMap)

	if counter, exists := ctxCounters.Load(key); exists {
		return Counter{
			Context: k,
			Counter: counter.(*prometheus.CounterVec),
			Name:    name,
			Labels:  labelMap,
		}
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
	}, labelKeys)

	if err := prometheus.Register(counter); err != nil {
		k.Errorf("error registering counter[%s/%v]: %v", name, labels, err)
	}

	actual, _ := ctxCounters.LoadOrStore(key, counter)
	return Counter{
		Context: k,
		Counter: actual.(*prometheus.CounterVec),
		Name:    name,
		Labels:  labelMap,
	}
}

func (c Counter) Add(count int) {
	defer func() {
		if r := recover(); r != nil {
			c.Context.Errorf("error adding to counter[%s/%v]: %v", c.Name, c.Labels, r)
		}
	}()

	if logger := logger.GetLogger("metrics." + c.Name); logger.IsLevelEnabled(4) {
		logger.WithValues(mapToSlice(c.Labels)...).V(MetricsLogLevel).Infof("%d", count)
	}
	c.Counter.With(prometheus.Labels(c.Labels)).Add(float64(count))
}

func (c *Counter) Label(k, v string) Counter {
	c.Labels[k] = v
	return *c
}
