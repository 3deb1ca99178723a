package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin/builtin/infra"
	"github.com/kiosk404/echobot/internal/echobot/service/scheduler"
)

const (
	TimerName = "timer"

	timeLayout = "2006-01-02 15:04:05 MST"
)

// Timer previews cron schedules with "/timer <spec>" and sets one-shot
// reminders with "/remind <duration> <text>".
type Timer struct {
	plugin.Base
	sched *scheduler.Scheduler
	now   func() time.Time
}

func NewTimer() *Timer {
	return &Timer{now: time.Now}
}

func (*Timer) Meta() plugin.Metadata {
	m := plugin.NewMetadata(TimerName, "Cron previews and reminders")
	m.Commands = []plugin.CommandInfo{
		{Name: "timer", Description: "show the next fire time of a cron spec"},
		{Name: "remind", Description: "remind you after a duration, e.g. /remind 10m tea"},
	}
	return m
}

func (*Timer) Dependencies() []plugin.Dependency {
	return []plugin.Dependency{plugin.Required(infra.SchedulerName)}
}

func (t *Timer) Build(_ context.Context, b *plugin.AppBuilder) error {
	sched, err := plugin.Lookup[*scheduler.Scheduler](b.Resources())
	if err != nil {
		return err
	}
	t.sched = sched
	return nil
}

func (*Timer) Matches(ev *event.Context) bool {
	return isCommand(ev, "timer", "cron") || isCommand(ev, "remind")
}

func (t *Timer) Handle(_ context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	cmd, _ := ev.Command()
	if cmd.Is("remind") {
		return plugin.ReplyAndBlock(t.remind(ev, cmd.Args)), nil
	}
	return plugin.ReplyAndBlock(t.preview(cmd.Args)), nil
}

func (t *Timer) preview(spec string) string {
	if spec == "" {
		return "Usage: /timer <cron spec>"
	}
	sched, err := scheduler.Parser.Parse(spec)
	if err != nil {
		return fmt.Sprintf("Invalid cron spec %q: %v", spec, err)
	}
	next := sched.Next(t.now())
	return fmt.Sprintf("Next trigger time for '%s' is: %s", spec, next.Format(timeLayout))
}

func (t *Timer) remind(ev *event.Context, args string) string {
	const usage = "Usage: /remind <duration> <text>"
	raw, text, _ := strings.Cut(args, " ")
	text = strings.TrimSpace(text)
	delay, err := time.ParseDuration(raw)
	if err != nil || delay <= 0 || text == "" {
		return usage
	}
	_, err = t.sched.Once("remind:"+ev.SessionKey(), delay, func(ctx context.Context) error {
		return ev.Reply(ctx, "⏰ Reminder: "+text)
	})
	if err != nil {
		return fmt.Sprintf("Could not set reminder: %v", err)
	}
	return fmt.Sprintf("OK, I will remind you at %s.", t.now().Add(delay).Format(timeLayout))
}
