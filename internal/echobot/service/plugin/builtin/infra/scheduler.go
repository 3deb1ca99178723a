package infra

import (
	"context"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/scheduler"
)

const SchedulerName = "scheduler"

// Scheduler shares a job scheduler. Interval and cron jobs start running
// once the application starts.
type Scheduler struct {
	plugin.Base
	sched *scheduler.Scheduler
}

func NewScheduler() *Scheduler {
	return &Scheduler{sched: scheduler.New()}
}

func (s *Scheduler) Meta() plugin.Metadata {
	return plugin.NewMetadata(SchedulerName, "Runs delayed, interval and cron jobs for other plugins")
}

func (s *Scheduler) Build(_ context.Context, b *plugin.AppBuilder) error {
	plugin.Insert(b.Resources(), s.sched)
	return b.Lifecycle().OnStartup(SchedulerName, func(context.Context) error {
		s.sched.Start()
		return nil
	})
}

func (s *Scheduler) Cleanup(ctx context.Context, _ *plugin.App) error {
	return s.sched.Shutdown(ctx)
}

func (s *Scheduler) Matches(*event.Context) bool { return false }

func (s *Scheduler) Handle(context.Context, *event.Context) (*plugin.HandleResult, error) {
	return nil, nil
}
