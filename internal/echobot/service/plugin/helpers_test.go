package plugin

import (
	"context"
	"sync"

	"github.com/kiosk404/echobot/internal/echobot/event"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) filter(prefix string) []string {
	var out []string
	for _, e := range r.list() {
		if len(e) > len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e[len(prefix):])
		}
	}
	return out
}

type fakePlugin struct {
	Base
	name      string
	nonUnique bool
	deps      []Dependency
	rec       *recorder

	match      func(*event.Context) bool
	result     *HandleResult
	handleErr  error
	buildErr   error
	finishErr  error
	cleanupErr error
	notReady   bool
	onBuild    func(b *AppBuilder) error
}

func newFake(name string, rec *recorder, deps ...Dependency) *fakePlugin {
	return &fakePlugin{name: name, rec: rec, deps: deps}
}

func (p *fakePlugin) Meta() Metadata             { return NewMetadata(p.name, "fake "+p.name) }
func (p *fakePlugin) IsUnique() bool             { return !p.nonUnique }
func (p *fakePlugin) Dependencies() []Dependency { return p.deps }

func (p *fakePlugin) Build(_ context.Context, b *AppBuilder) error {
	p.rec.add("build:" + p.name)
	if p.onBuild != nil {
		if err := p.onBuild(b); err != nil {
			return err
		}
	}
	return p.buildErr
}

func (p *fakePlugin) Ready(*App) bool {
	p.rec.add("ready:" + p.name)
	return !p.notReady
}

func (p *fakePlugin) Finish(context.Context, *App) error {
	p.rec.add("finish:" + p.name)
	return p.finishErr
}

func (p *fakePlugin) Cleanup(context.Context, *App) error {
	p.rec.add("cleanup:" + p.name)
	return p.cleanupErr
}

func (p *fakePlugin) Matches(ev *event.Context) bool {
	if p.match == nil {
		return true
	}
	return p.match(ev)
}

func (p *fakePlugin) Handle(_ context.Context, ev *event.Context) (*HandleResult, error) {
	p.rec.add("handle:" + p.name)
	return p.result, p.handleErr
}

type sentText struct {
	target event.Target
	text   string
}

type captureSender struct {
	mu   sync.Mutex
	sent []sentText
}

func (c *captureSender) SendText(_ context.Context, target event.Target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentText{target: target, text: text})
	return nil
}

func (c *captureSender) SendImage(_ context.Context, target event.Target, url string) error {
	return c.SendText(context.Background(), target, "[image] "+url)
}

func (c *captureSender) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, s := range c.sent {
		out[i] = s.text
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func buildRunning(t interface {
	Helper()
	Fatalf(string, ...interface{})
}, plugins ...Plugin) *App {
	t.Helper()
	b := NewAppBuilder()
	for _, p := range plugins {
		if err := b.AddPlugin(p); err != nil {
			t.Fatalf("AddPlugin(%s): %v", p.Meta().Name, err)
		}
	}
	app, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return app
}
