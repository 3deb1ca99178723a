package bridge

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/protocol"
)

const helperModeEnv = "ECHOBOT_HELPER_MODE"

// helperConfig re-executes the test binary as an external plugin running
// the given mode.
func helperConfig(mode string) ProcessConfig {
	return ProcessConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=^TestHelperProcess$", "--"},
		Env: map[string]string{
			"GO_WANT_HELPER_PROCESS": "1",
			helperModeEnv:            mode,
		},
	}
}

func fastTimeouts() Timeouts {
	return Timeouts{Call: 2 * time.Second, Shutdown: 300 * time.Millisecond, Grace: 300 * time.Millisecond}
}

// TestHelperProcess is not a real test. It is the body of the child
// processes spawned by the other tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	ctx := context.Background()
	var err error
	switch mode := os.Getenv(helperModeEnv); mode {
	case "greeter":
		err = protocol.Serve(ctx, os.Stdin, os.Stdout, greeter{})
	case "crashy":
		err = protocol.Serve(ctx, os.Stdin, os.Stdout, crashy{})
	case "mute":
		runMute()
	case "exit":
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "unknown helper mode %q\n", mode)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

// greeter only wants "/hello" and answers it with "hi". Every handle
// response is preceded by noise the bridge must skip.
type greeter struct{}

func (greeter) Metadata(context.Context) (protocol.Metadata, error) {
	return protocol.Metadata{
		Name:     "greeter",
		Version:  "0.1.0",
		Commands: []protocol.CommandInfo{{Name: "hello", Description: "say hi"}},
	}, nil
}

func (greeter) Matches(_ context.Context, p protocol.MatchesParams) (bool, error) {
	return p.Text == "/hello", nil
}

func (greeter) Handle(_ context.Context, p protocol.HandleParams) (protocol.HandleResult, error) {
	fmt.Fprintln(os.Stdout, "this is not json")
	fmt.Fprintln(os.Stdout, `{"jsonrpc":"2.0","result":{},"id":987654321}`)
	fmt.Fprintln(os.Stderr, "handling", p.Text)
	if p.Text == "/hello" {
		return protocol.Replied("hi"), nil
	}
	return protocol.Ignored(), nil
}

func (greeter) Lifecycle(context.Context, protocol.LifecycleEvent) (bool, error) {
	return true, nil
}

// crashy exits on "/crash", exits after a pause on "/slowcrash", never
// answers "/stall" and otherwise replies "ok".
type crashy struct{}

func (crashy) Metadata(context.Context) (protocol.Metadata, error) {
	return protocol.Metadata{Name: "crashy"}, nil
}

func (crashy) Matches(context.Context, protocol.MatchesParams) (bool, error) { return true, nil }

func (crashy) Handle(_ context.Context, p protocol.HandleParams) (protocol.HandleResult, error) {
	switch p.Text {
	case "/crash":
		os.Exit(3)
	case "/slowcrash":
		time.Sleep(200 * time.Millisecond)
		os.Exit(3)
	case "/stall":
		time.Sleep(time.Hour)
	}
	return protocol.Replied("ok"), nil
}

func (crashy) Lifecycle(context.Context, protocol.LifecycleEvent) (bool, error) {
	return true, nil
}

// runMute answers every request until the shutdown notice, then ignores
// all input and SIGTERM.
func runMute() {
	signal.Ignore(syscall.SIGTERM)
	sc := bufio.NewScanner(os.Stdin)
	silent := false
	for sc.Scan() {
		if silent {
			continue
		}
		if strings.Contains(sc.Text(), `"shutdown"`) {
			silent = true
			continue
		}
		id, _ := protocol.PeekID(sc.Bytes())
		fmt.Fprintf(os.Stdout, `{"jsonrpc":"2.0","result":{"ok":true},"id":%d}`+"\n", id)
	}
	time.Sleep(time.Hour)
}

func textEvent(text string, sender event.Sender) *event.Context {
	return event.New(event.MessageTypePrivate, 42, nil, text, sender)
}

func mustStart(t *testing.T, p *ExternalProcess) {
	t.Helper()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start(%s): %v", p.Name(), err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	if got := p.State(); got != StateServing {
		t.Fatalf("state after Start = %s", got)
	}
}

type lineSender struct {
	lines []string
}

func (s *lineSender) SendText(_ context.Context, _ event.Target, text string) error {
	s.lines = append(s.lines, text)
	return nil
}

func (s *lineSender) SendImage(_ context.Context, _ event.Target, url string) error {
	s.lines = append(s.lines, "[image] "+url)
	return nil
}

func (s *lineSender) joined() string { return strings.Join(s.lines, "|") }
