package bridge

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/bytedance/gg/gptr"

	"github.com/kiosk404/echobot/internal/echobot/protocol"
)

func TestProcessServesAndSkipsNoise(t *testing.T) {
	p := NewExternalProcess("greeter", helperConfig("greeter"), fastTimeouts())
	mustStart(t, p)

	meta, ok := p.Meta()
	if !ok || meta.Name != "greeter" || len(meta.Commands) != 1 {
		t.Fatalf("metadata = %+v, %v", meta, ok)
	}
	if p.PID() == 0 {
		t.Error("expected a pid while serving")
	}

	ctx := context.Background()
	if !p.Matches(ctx, textEvent("/hello", nil)) {
		t.Fatal("greeter should match /hello")
	}
	res, err := p.Handle(ctx, textEvent("/hello", nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.Handled || !res.Block || res.Reply == nil || *res.Reply != "hi" {
		t.Fatalf("result = %+v", res)
	}
	if p.State() != StateServing || p.Restarts() != 0 {
		t.Errorf("noise must not count as a crash: state %s restarts %d", p.State(), p.Restarts())
	}
}

func TestProcessRestartBudget(t *testing.T) {
	cfg := helperConfig("crashy")
	cfg.AutoRestart = true
	cfg.MaxRestarts = gptr.Of(2)
	p := NewExternalProcess("crashy", cfg, fastTimeouts())
	mustStart(t, p)

	ctx := context.Background()
	for i := 1; i <= 2; i++ {
		if _, err := p.Handle(ctx, textEvent("/crash", nil)); !errors.Is(err, ErrProcessCrashed) {
			t.Fatalf("crash %d: err = %v", i, err)
		}
		if got := p.State(); got != StateServing {
			t.Fatalf("after crash %d state = %s, want Serving", i, got)
		}
		if got := p.Restarts(); got != i {
			t.Fatalf("after crash %d restarts = %d", i, got)
		}
		res, err := p.Handle(ctx, textEvent("/again", nil))
		if err != nil || res.Reply == nil || *res.Reply != "ok" {
			t.Fatalf("serve after restart %d: %+v, %v", i, res, err)
		}
	}

	if _, err := p.Handle(ctx, textEvent("/crash", nil)); !errors.Is(err, ErrProcessCrashed) {
		t.Fatalf("crash 3: err = %v", err)
	}
	if got := p.State(); got != StateTerminated {
		t.Fatalf("after crash 3 state = %s, want Terminated", got)
	}
	if !errors.Is(p.LastError(), ErrRestartExhausted) {
		t.Errorf("last error = %v", p.LastError())
	}

	before := p.nextID.Load()
	if p.Matches(ctx, textEvent("/anything", nil)) {
		t.Error("terminated process must not match")
	}
	if _, err := p.Handle(ctx, textEvent("/anything", nil)); !errors.Is(err, ErrProcessTerminated) {
		t.Errorf("Handle on terminated = %v", err)
	}
	if after := p.nextID.Load(); after != before {
		t.Errorf("terminated process was contacted: request ids %d -> %d", before, after)
	}
}

func TestProcessWithoutAutoRestartTerminatesOnCrash(t *testing.T) {
	p := NewExternalProcess("crashy", helperConfig("crashy"), fastTimeouts())
	mustStart(t, p)

	if _, err := p.Handle(context.Background(), textEvent("/crash", nil)); !errors.Is(err, ErrProcessCrashed) {
		t.Fatalf("err = %v", err)
	}
	if p.State() != StateTerminated || p.Restarts() != 0 {
		t.Fatalf("state %s restarts %d", p.State(), p.Restarts())
	}
}

func TestProcessSpawnFailureTerminates(t *testing.T) {
	cfg := ProcessConfig{Command: "/nonexistent/echobot-plugin", AutoRestart: true}
	p := NewExternalProcess("ghost", cfg, fastTimeouts())

	err := p.Start(context.Background())
	if !errors.Is(err, ErrSpawnFailure) {
		t.Fatalf("Start err = %v", err)
	}
	if p.State() != StateTerminated {
		t.Errorf("state = %s", p.State())
	}
}

func TestProcessFailedHandshakeUsesRestartBudget(t *testing.T) {
	cfg := helperConfig("exit")
	cfg.AutoRestart = true
	cfg.MaxRestarts = gptr.Of(1)
	p := NewExternalProcess("quitter", cfg, fastTimeouts())

	err := p.Start(context.Background())
	if !errors.Is(err, ErrRestartExhausted) {
		t.Fatalf("Start err = %v", err)
	}
	if p.State() != StateTerminated || p.Restarts() != 1 {
		t.Errorf("state %s restarts %d", p.State(), p.Restarts())
	}
}

func TestShutdownCompletesWithUnresponsiveChild(t *testing.T) {
	timeouts := fastTimeouts()
	p := NewExternalProcess("mute", helperConfig("mute"), timeouts)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	start := time.Now()
	go func() {
		_ = p.Shutdown(context.Background())
		close(done)
	}()

	limit := timeouts.Shutdown + timeouts.Grace + 5*time.Second
	select {
	case <-done:
	case <-time.After(limit):
		t.Fatalf("Shutdown still running after %s", limit)
	}
	if elapsed := time.Since(start); elapsed < timeouts.Grace {
		t.Errorf("child ignoring SIGTERM was stopped after %s, before the grace period", elapsed)
	}
	if p.State() != StateTerminated || p.PID() != 0 {
		t.Errorf("state %s pid %d", p.State(), p.PID())
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown = %v", err)
	}
}

func TestConcurrentCallsOnDyingChildRestartOnce(t *testing.T) {
	cfg := helperConfig("crashy")
	cfg.AutoRestart = true
	cfg.MaxRestarts = gptr.Of(5)
	p := NewExternalProcess("crashy", cfg, fastTimeouts())
	mustStart(t, p)
	firstPID := p.PID()

	ctx := context.Background()
	const callers = 4
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Handle(ctx, textEvent("/slowcrash", nil))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrProcessCrashed) {
			t.Errorf("caller err = %v, want crashed", err)
		}
	}
	if got := p.State(); got != StateServing {
		t.Fatalf("state = %s, want Serving", got)
	}
	if got := p.Restarts(); got != 1 {
		t.Fatalf("one child death consumed %d restarts", got)
	}
	secondPID := p.PID()
	res, err := p.Handle(ctx, textEvent("/again", nil))
	if err != nil || res.Reply == nil || *res.Reply != "ok" {
		t.Fatalf("serve after restart: %+v, %v", res, err)
	}

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, pid := range []int{firstPID, secondPID} {
		if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
			t.Errorf("child %d still alive after Shutdown (kill 0 = %v)", pid, err)
		}
	}
}

func TestCallTimeoutIsACrash(t *testing.T) {
	timeouts := fastTimeouts()
	timeouts.Call = 300 * time.Millisecond

	t.Run("restarted", func(t *testing.T) {
		cfg := helperConfig("crashy")
		cfg.AutoRestart = true
		cfg.MaxRestarts = gptr.Of(1)
		p := NewExternalProcess("staller", cfg, timeouts)
		mustStart(t, p)
		stalled := p.PID()

		_, err := p.Handle(context.Background(), textEvent("/stall", nil))
		if !errors.Is(err, ErrProcessCrashed) || !errors.Is(err, protocol.ErrRPCTimeout) {
			t.Fatalf("err = %v, want a crash by timeout", err)
		}
		if p.State() != StateServing || p.Restarts() != 1 {
			t.Fatalf("state %s restarts %d", p.State(), p.Restarts())
		}
		if err := syscall.Kill(stalled, 0); !errors.Is(err, syscall.ESRCH) {
			t.Errorf("stalled child %d was not killed (kill 0 = %v)", stalled, err)
		}
		if !p.Matches(context.Background(), textEvent("/anything", nil)) {
			t.Error("restarted child should match again")
		}
	})

	t.Run("terminated", func(t *testing.T) {
		p := NewExternalProcess("staller", helperConfig("crashy"), timeouts)
		mustStart(t, p)

		start := time.Now()
		if _, err := p.Handle(context.Background(), textEvent("/stall", nil)); !errors.Is(err, protocol.ErrRPCTimeout) {
			t.Fatalf("err = %v", err)
		}
		if elapsed := time.Since(start); elapsed > timeouts.Call+2*time.Second {
			t.Errorf("timed out call returned after %s", elapsed)
		}
		if p.State() != StateTerminated {
			t.Fatalf("state = %s, want Terminated", p.State())
		}
	})
}
