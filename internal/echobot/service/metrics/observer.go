package metrics

import (
	"time"

	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
)

// Metric names recorded by the dispatch observer.
const (
	EventsTotal      = "events_total"
	EventsDropped    = "events_dropped_total"
	EventsBlocked    = "events_blocked_total"
	DispatchDuration = "dispatch_duration_seconds"
	HandleTotal      = "plugin_handle_total"
	HandleErrors     = "plugin_handle_errors_total"
	HandleDuration   = "plugin_handle_duration_seconds"
)

// Observer feeds dispatch activity into a Sink.
type Observer struct {
	sink *Sink
}

var _ plugin.DispatchObserver = (*Observer)(nil)

func NewObserver(sink *Sink) *Observer {
	return &Observer{sink: sink}
}

func (o *Observer) ObserveHandle(name string, elapsed time.Duration, _ *plugin.HandleResult, err error) {
	labels := Labels{"plugin": name}
	o.sink.IncCounter(HandleTotal, labels, 1)
	o.sink.ObserveDuration(HandleDuration, labels, elapsed)
	if err != nil {
		o.sink.IncCounter(HandleErrors, labels, 1)
	}
}

func (o *Observer) ObserveDispatch(report *plugin.DispatchReport, elapsed time.Duration) {
	o.sink.IncCounter(EventsTotal, nil, 1)
	o.sink.ObserveDuration(DispatchDuration, nil, elapsed)
	switch {
	case report.Dropped():
		o.sink.IncCounter(EventsDropped, nil, 1)
	case report.BlockedBy != "":
		o.sink.IncCounter(EventsBlocked, Labels{"plugin": report.BlockedBy}, 1)
	}
}
