package cmd

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/kiosk404/echobot/internal/echobot/protocol"
)

// TestHelperProcess is the body of the plugin processes spawned by the
// other tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if err := protocol.Serve(context.Background(), os.Stdin, os.Stdout, shouter{}); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

type shouter struct{}

func (shouter) Metadata(context.Context) (protocol.Metadata, error) {
	return protocol.Metadata{
		Name:        "shouter",
		Version:     "0.2.0",
		Description: "Repeats text in capitals",
		Commands:    []protocol.CommandInfo{{Name: "shout", Description: "shout text", Aliases: []string{"yell"}}},
	}, nil
}

func (shouter) Matches(_ context.Context, p protocol.MatchesParams) (bool, error) {
	return strings.HasPrefix(p.Text, "/shout "), nil
}

func (shouter) Handle(_ context.Context, p protocol.HandleParams) (protocol.HandleResult, error) {
	return protocol.Replied(strings.ToUpper(strings.TrimPrefix(p.Text, "/shout "))), nil
}

func (shouter) Lifecycle(context.Context, protocol.LifecycleEvent) (bool, error) {
	return true, nil
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewEchoCtlCommand(strings.NewReader(""), &out, &errOut)
	helper := []string{"--env", "GO_WANT_HELPER_PROCESS=1", "--", os.Args[0], "-test.run=^TestHelperProcess$"}
	cmd.SetArgs(append(args, helper...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, errOut.String())
	}
	return out.String()
}

func TestProbePrintsMetadata(t *testing.T) {
	out := execute(t, "probe")
	for _, want := range []string{"shouter", "0.2.0", "Repeats text in capitals", "/shout", "yell"} {
		if !strings.Contains(out, want) {
			t.Errorf("probe output misses %q:\n%s", want, out)
		}
	}
}

func TestCallPrintsResults(t *testing.T) {
	out := execute(t, "call", "matches", "--text", "/shout hey")
	if !strings.Contains(out, `"matches": true`) {
		t.Errorf("matches output:\n%s", out)
	}

	out = execute(t, "call", "handle", "--text", "/shout hey", "--group", "7")
	if !strings.Contains(out, `"reply": "HEY"`) || !strings.Contains(out, `"handled": true`) {
		t.Errorf("handle output:\n%s", out)
	}
}
