package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/pkg/logger"
)

// DispatchObserver is notified of dispatch activity, e.g. by a metrics sink.
type DispatchObserver interface {
	ObserveHandle(plugin string, elapsed time.Duration, result *HandleResult, err error)
	ObserveDispatch(report *DispatchReport, elapsed time.Duration)
}

// DispatchReport summarizes one event's traversal.
type DispatchReport struct {
	EventID string
	// Matched lists plugins whose Matches returned true, in order.
	Matched []string
	// Handled lists plugins whose result had Handled set.
	Handled []string
	// BlockedBy names the plugin that stopped dispatch, if any.
	BlockedBy string
	Errors    []error
}

// Dropped reports whether no plugin matched the event.
func (r *DispatchReport) Dropped() bool {
	return len(r.Matched) == 0
}

// Dispatch walks the plugins in order. Each matching plugin is handled and
// its reply and actions delivered through ev; dispatch stops after the first
// result with Block set. A failing plugin is recorded and dispatch continues.
// Distinct events may be dispatched concurrently.
func (a *App) Dispatch(ctx context.Context, ev *event.Context) (*DispatchReport, error) {
	if a.State() != StateRunning {
		return nil, ErrNotRunning
	}

	start := time.Now()
	report := &DispatchReport{EventID: ev.ID}

	for i, p := range a.plugins {
		name := a.names[i]
		if !safeMatches(name, p, ev) {
			continue
		}
		report.Matched = append(report.Matched, name)

		t0 := time.Now()
		res, err := safeHandle(ctx, p, ev)
		if a.observer != nil {
			a.observer.ObserveHandle(name, time.Since(t0), res, err)
		}
		if err != nil {
			herr := &HandleError{Plugin: name, Err: err}
			logger.Error("[Dispatch] %v", herr)
			report.Errors = append(report.Errors, herr)
			continue
		}
		if res == nil {
			continue
		}
		if res.Handled {
			report.Handled = append(report.Handled, name)
		}
		if err := deliver(ctx, ev, res); err != nil {
			logger.Warn("[Dispatch] plugin %q delivery failed: %v", name, err)
			report.Errors = append(report.Errors, fmt.Errorf("plugin %q delivery: %w", name, err))
		}
		if res.Block {
			report.BlockedBy = name
			break
		}
	}

	if report.Dropped() {
		logger.Debug("[Dispatch] event %s dropped: no plugin matched", ev.ID)
	}
	if a.observer != nil {
		a.observer.ObserveDispatch(report, time.Since(start))
	}
	return report, nil
}

func deliver(ctx context.Context, ev *event.Context, res *HandleResult) error {
	actions := res.Actions
	if res.Reply != nil {
		actions = append([]event.Action{event.Reply(*res.Reply)}, actions...)
	}
	if len(actions) == 0 {
		return nil
	}
	return ev.Apply(ctx, actions)
}

func safeMatches(name string, p Plugin, ev *event.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Dispatch] plugin %q matches panicked: %v", name, r)
			ok = false
		}
	}()
	return p.Matches(ev)
}

func safeHandle(ctx context.Context, p Plugin, ev *event.Context) (res *HandleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Handle(ctx, ev)
}
