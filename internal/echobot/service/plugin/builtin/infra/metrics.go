package infra

import (
	"context"
	"sync"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/metrics"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/scheduler"
	"github.com/kiosk404/echobot/pkg/logger"
)

const MetricsName = "metrics"

// Metrics records dispatch counters and latencies into a shared sink and
// logs them on an interval when the scheduler plugin is present.
type Metrics struct {
	plugin.Base
	sink     *metrics.Sink
	interval time.Duration

	mu       sync.Mutex
	reporter *metrics.Reporter
}

func NewMetrics(interval time.Duration) *Metrics {
	sink := metrics.NewSink()
	return &Metrics{sink: sink, interval: interval, reporter: metrics.NewReporter(sink)}
}

func (m *Metrics) Meta() plugin.Metadata {
	return plugin.NewMetadata(MetricsName, "Counts dispatched events and plugin handle latencies")
}

func (m *Metrics) Dependencies() []plugin.Dependency {
	return []plugin.Dependency{plugin.Optional(SchedulerName)}
}

func (m *Metrics) Build(_ context.Context, b *plugin.AppBuilder) error {
	plugin.Insert(b.Resources(), m.sink)
	b.SetDispatchObserver(metrics.NewObserver(m.sink))

	if m.interval <= 0 {
		return nil
	}
	sched, ok := plugin.Get[*scheduler.Scheduler](b.Resources())
	if !ok {
		logger.Info("[Metrics] no scheduler, periodic reports disabled")
		return nil
	}
	return b.Lifecycle().OnStartup(MetricsName, func(context.Context) error {
		_, err := sched.Every("metrics-report", m.interval, func(context.Context) error {
			m.report()
			return nil
		})
		return err
	})
}

// Cleanup logs a final report.
func (m *Metrics) Cleanup(context.Context, *plugin.App) error {
	m.report()
	return nil
}

func (m *Metrics) report() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reporter.Report()
}

func (m *Metrics) Matches(*event.Context) bool { return false }

func (m *Metrics) Handle(context.Context, *event.Context) (*plugin.HandleResult, error) {
	return nil, nil
}
