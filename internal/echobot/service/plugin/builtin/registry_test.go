package builtin

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/config"
	"github.com/kiosk404/echobot/internal/echobot/service/metrics"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin/builtin/commands"
	"github.com/kiosk404/echobot/internal/echobot/service/session"
	"github.com/kiosk404/echobot/internal/echobot/service/storage"
	genericoptions "github.com/kiosk404/echobot/internal/pkg/options"
)

type chat struct {
	mu    sync.Mutex
	lines []string
}

func (c *chat) SendText(_ context.Context, _ event.Target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, text)
	return nil
}

func (c *chat) SendImage(_ context.Context, _ event.Target, url string) error {
	return c.SendText(context.Background(), event.Target{}, "[image] "+url)
}

func (c *chat) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *chat) last() string {
	lines := c.all()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func testOptions(t *testing.T, guess map[string]interface{}) Options {
	t.Helper()
	plugins := genericoptions.NewPluginsOptions()
	if guess != nil {
		plugins.Entries[commands.GuessName] = genericoptions.PluginEntryConfig{Config: guess}
	}
	return Options{
		Plugins: plugins,
		Storage: &genericoptions.StorageOptions{Path: filepath.Join(t.TempDir(), "bot.db")},
		Metrics: &genericoptions.MetricsOptions{},
	}
}

func startApp(t *testing.T, opts Options) *plugin.App {
	t.Helper()
	b := plugin.NewAppBuilder().WithConfig(config.New())
	if err := NewInTreeRegistry(opts).ApplyTo(b); err != nil {
		t.Fatalf("ApplyTo: %v", err)
	}
	app, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app
}

func say(t *testing.T, app *plugin.App, c *chat, text string) *plugin.DispatchReport {
	t.Helper()
	ev := event.New(event.MessageTypePrivate, 42, nil, text, c)
	ev.SenderName = "alice"
	report, err := app.Dispatch(context.Background(), ev)
	if err != nil {
		t.Fatalf("Dispatch(%q): %v", text, err)
	}
	return report
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRegistryHonorsAllowDeny(t *testing.T) {
	all := NewInTreeRegistry(Options{}).Names()
	want := []string{"session", "metrics", "scheduler", "storage", "ping", "help",
		"echo", "add", "whoami", "guess", "timer", "external-plugin-bridge"}
	if strings.Join(all, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v", all)
	}

	opts := genericoptions.NewPluginsOptions()
	opts.Deny = []string{"guess", "storage"}
	got := NewInTreeRegistry(Options{Plugins: opts}).Names()
	for _, name := range got {
		if name == "guess" || name == "storage" {
			t.Errorf("denied plugin %q registered", name)
		}
	}
	if len(got) != len(want)-2 {
		t.Errorf("names = %v", got)
	}
}

func TestBuiltinDispatchOrder(t *testing.T) {
	app := startApp(t, testOptions(t, nil))
	want := "session,scheduler,metrics,storage,ping,help,echo,add,whoami,guess,timer,external-plugin-bridge"
	if got := strings.Join(app.PluginNames(), ","); got != want {
		t.Errorf("order = %s", got)
	}
}

func TestBuiltinCommands(t *testing.T) {
	app := startApp(t, testOptions(t, nil))

	cases := []struct {
		in, want string
	}{
		{"/ping", "pong"},
		{"/ping bob", "pong bob"},
		{"/echo hello there", "Echo: hello there"},
		{"/say hi", "Echo: hi"},
		{"/echo", "Usage: /echo <text>"},
		{"/add 2 3", "2 + 3 = 5"},
		{"/add 2 x", "Usage: /add <a> <b>"},
		{"/whoami", "You are alice (42)\nIn Private Chat"},
		{"/timer bogus", `Invalid cron spec "bogus"`},
		{"/remind soon tea", "Usage: /remind <duration> <text>"},
	}
	for _, tc := range cases {
		c := &chat{}
		report := say(t, app, c, tc.in)
		if !strings.HasPrefix(c.last(), tc.want) {
			t.Errorf("%q replied %q, want prefix %q", tc.in, c.last(), tc.want)
		}
		if report.BlockedBy == "" {
			t.Errorf("%q was not blocked: %+v", tc.in, report)
		}
	}

	c := &chat{}
	say(t, app, c, "/timer 0 0 12 * * *")
	if !strings.HasPrefix(c.last(), "Next trigger time for '0 0 12 * * *' is: ") || !strings.Contains(c.last(), "12:00:00") {
		t.Errorf("timer replied %q", c.last())
	}

	c = &chat{}
	say(t, app, c, "/help")
	for _, line := range []string{"/ping - reply with pong", "/guess - ", "/remind - ", "/echo - repeat a message (aliases: say)"} {
		if !strings.Contains(c.last(), line) {
			t.Errorf("help is missing %q:\n%s", line, c.last())
		}
	}

	// The bridge matches everything and hands off to its children; with no
	// children running the event passes through unhandled.
	report := say(t, app, &chat{}, "just chatting")
	if len(report.Handled) != 0 || report.BlockedBy != "" {
		t.Errorf("plain text report = %+v", report)
	}

	sink := plugin.MustGet[*metrics.Sink](app.Resources())
	if got := sink.Counter(metrics.EventsTotal, nil); got < int64(len(cases)+3) {
		t.Errorf("events_total = %d", got)
	}
	if got := sink.Counter(metrics.EventsBlocked, metrics.Labels{"plugin": commands.PingName}); got != 2 {
		t.Errorf("blocked by ping = %d", got)
	}
}

func TestGuessGame(t *testing.T) {
	app := startApp(t, testOptions(t, map[string]interface{}{"secret": 42, "timeout": "5s"}))
	sessions := plugin.MustGet[*session.Manager](app.Resources())
	c := &chat{}

	done := make(chan *plugin.DispatchReport, 1)
	go func() {
		ev := event.New(event.MessageTypePrivate, 42, nil, "/guess", c)
		report, _ := app.Dispatch(context.Background(), ev)
		done <- report
	}()

	key := "user:42"
	steps := []struct{ in, want string }{
		{"abc", "Please enter a valid number."},
		{"10", "Too low! Try again."},
		{"50", "Too high! Try again."},
		{"42", "🎉 You guessed it! You win! (3 attempts, 1 wins so far)"},
	}
	for i, step := range steps {
		waitFor(t, "the game to wait for input", func() bool { return sessions.Pending(key) })
		report := say(t, app, c, step.in)
		if report.BlockedBy != "session" {
			t.Fatalf("%q was not consumed by the session: %+v", step.in, report)
		}
		waitFor(t, "the reply to "+step.in, func() bool { return len(c.all()) == i+2 })
		if c.last() != step.want {
			t.Errorf("%q replied %q, want %q", step.in, c.last(), step.want)
		}
	}

	select {
	case report := <-done:
		if report == nil || report.BlockedBy != commands.GuessName {
			t.Errorf("game report = %+v", report)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("game did not finish")
	}

	var score commands.GuessScore
	kv := plugin.MustGet[storage.KV](app.Resources())
	if ok, err := storage.GetJSON(context.Background(), kv, "guess", "42", &score); err != nil || !ok {
		t.Fatalf("score lookup: %v, %v", ok, err)
	}
	if score.Wins != 1 || score.Attempts != 3 {
		t.Errorf("score = %+v", score)
	}
}

func TestGuessTimesOut(t *testing.T) {
	app := startApp(t, testOptions(t, map[string]interface{}{"timeout": "100ms"}))
	c := &chat{}
	say(t, app, c, "/guess")
	lines := c.all()
	if len(lines) != 2 || lines[1] != "Time's up! Game over." {
		t.Errorf("lines = %q", lines)
	}
}

func TestGuessRejectsBadSecret(t *testing.T) {
	opts := testOptions(t, map[string]interface{}{"secret": 500})
	b := plugin.NewAppBuilder()
	if err := NewInTreeRegistry(opts).ApplyTo(b); err == nil {
		t.Fatal("expected an error for an out-of-range secret")
	}
}

func TestRemindFiresLater(t *testing.T) {
	app := startApp(t, testOptions(t, nil))
	c := &chat{}
	say(t, app, c, "/remind 50ms tea")
	if !strings.HasPrefix(c.last(), "OK, I will remind you at ") {
		t.Fatalf("remind replied %q", c.last())
	}
	waitFor(t, "the reminder", func() bool { return c.last() == "⏰ Reminder: tea" })
}
