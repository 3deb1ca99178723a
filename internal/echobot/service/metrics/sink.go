// Package metrics keeps counters and duration summaries for the dispatcher
// and the external plugin bridge in a Prometheus registry.
package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/kiosk404/echobot/pkg/logger"
)

// Namespace prefixes every metric the Sink registers.
const Namespace = "echobot"

// Labels qualify a metric name.
type Labels map[string]string

// Key renders name{k=v,...} with label keys sorted.
func Key(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	keys := labelNames(labels)

	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

func labelNames(labels Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary aggregates observed durations.
type Summary struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	P50   time.Duration `json:"p50"`
	P99   time.Duration `json:"p99"`
}

// Mean returns the average observation.
func (s Summary) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Snapshot is a point-in-time copy of the Sink's own metrics.
type Snapshot struct {
	Taken     time.Time          `json:"taken"`
	Uptime    time.Duration      `json:"uptime"`
	Counters  map[string]int64   `json:"counters"`
	Durations map[string]Summary `json:"durations"`
}

var objectives = map[float64]float64{0.5: 0.05, 0.99: 0.001}

// Sink registers counter and summary vectors on first use. A metric name
// keeps the label set it was first recorded with; later updates with a
// different set are dropped with a warning.
type Sink struct {
	reg     *prometheus.Registry
	started time.Time

	mu        sync.Mutex
	counters  map[string]*prometheus.CounterVec
	durations map[string]*prometheus.SummaryVec
}

func NewSink() *Sink {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}),
	)
	return &Sink{
		reg:       reg,
		started:   time.Now(),
		counters:  make(map[string]*prometheus.CounterVec),
		durations: make(map[string]*prometheus.SummaryVec),
	}
}

// Registry exposes the underlying registry.
func (s *Sink) Registry() *prometheus.Registry { return s.reg }

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg})
}

func (s *Sink) counterVec(name string, labels Labels) *prometheus.CounterVec {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vec, ok := s.counters[name]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      "echobot counter " + name,
	}, labelNames(labels))
	if err := s.reg.Register(vec); err != nil {
		logger.Warn("[Metrics] register counter %s: %v", name, err)
		return nil
	}
	s.counters[name] = vec
	return vec
}

func (s *Sink) summaryVec(name string, labels Labels) *prometheus.SummaryVec {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vec, ok := s.durations[name]; ok {
		return vec
	}
	vec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  Namespace,
		Name:       name,
		Help:       "echobot duration " + name,
		Objectives: objectives,
	}, labelNames(labels))
	if err := s.reg.Register(vec); err != nil {
		logger.Warn("[Metrics] register summary %s: %v", name, err)
		return nil
	}
	s.durations[name] = vec
	return vec
}

// IncCounter adds delta to the counter name{labels}. Negative deltas are
// ignored.
func (s *Sink) IncCounter(name string, labels Labels, delta int64) {
	if delta < 0 {
		return
	}
	vec := s.counterVec(name, labels)
	if vec == nil {
		return
	}
	c, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		logger.Warn("[Metrics] %s: %v", Key(name, labels), err)
		return
	}
	c.Add(float64(delta))
}

// ObserveDuration records d under name{labels}, in seconds.
func (s *Sink) ObserveDuration(name string, labels Labels, d time.Duration) {
	vec := s.summaryVec(name, labels)
	if vec == nil {
		return
	}
	o, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		logger.Warn("[Metrics] %s: %v", Key(name, labels), err)
		return
	}
	o.Observe(d.Seconds())
}

// Counter returns the current value of name{labels}, zero when unknown.
func (s *Sink) Counter(name string, labels Labels) int64 {
	s.mu.Lock()
	vec, ok := s.counters[name]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	c, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return int64(m.GetCounter().GetValue())
}

// Snapshot gathers the registry and keeps the families the Sink owns,
// keyed by their unprefixed name.
func (s *Sink) Snapshot() Snapshot {
	snap := Snapshot{
		Taken:     time.Now(),
		Uptime:    time.Since(s.started),
		Counters:  make(map[string]int64),
		Durations: make(map[string]Summary),
	}
	families, err := s.reg.Gather()
	if err != nil {
		logger.Warn("[Metrics] gather: %v", err)
	}
	prefix := Namespace + "_"
	for _, mf := range families {
		name, ok := strings.CutPrefix(mf.GetName(), prefix)
		if !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(Labels, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			key := Key(name, labels)
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				if _, own := s.lookupCounter(name); own {
					snap.Counters[key] = int64(m.GetCounter().GetValue())
				}
			case dto.MetricType_SUMMARY:
				if _, own := s.lookupSummary(name); own {
					snap.Durations[key] = toSummary(m.GetSummary())
				}
			}
		}
	}
	return snap
}

func (s *Sink) lookupCounter(name string) (*prometheus.CounterVec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vec, ok := s.counters[name]
	return vec, ok
}

func (s *Sink) lookupSummary(name string) (*prometheus.SummaryVec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vec, ok := s.durations[name]
	return vec, ok
}

func toSummary(ps *dto.Summary) Summary {
	sum := Summary{
		Count: int64(ps.GetSampleCount()),
		Total: seconds(ps.GetSampleSum()),
	}
	for _, q := range ps.GetQuantile() {
		switch q.GetQuantile() {
		case 0.5:
			sum.P50 = seconds(q.GetValue())
		case 0.99:
			sum.P99 = seconds(q.GetValue())
		}
	}
	return sum
}

func seconds(v float64) time.Duration {
	if v != v { // NaN for an empty quantile window
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
