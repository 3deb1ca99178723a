package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/protocol"
	"github.com/kiosk404/echobot/pkg/logger"
)

// State is the supervision state of an ExternalProcess.
type State int32

const (
	StateSpawning State = iota
	StateServing
	StateCrashed
	StateRestarting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "Spawning"
	case StateServing:
		return "Serving"
	case StateCrashed:
		return "Crashed"
	case StateRestarting:
		return "Restarting"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// ExternalProcess supervises one child speaking line-delimited JSON-RPC on
// its stdin/stdout.
type ExternalProcess struct {
	name     string
	cfg      ProcessConfig
	timeouts Timeouts

	nextID atomic.Uint64

	mu       sync.RWMutex
	state    State
	conn     *conn
	restarts int
	lastErr  error
	meta     *protocol.Metadata
}

// NewExternalProcess creates a process in the Spawning state. Nothing runs
// until Start.
func NewExternalProcess(name string, cfg ProcessConfig, timeouts Timeouts) *ExternalProcess {
	if timeouts.Call <= 0 {
		timeouts.Call = DefaultCallTimeout
	}
	if timeouts.Shutdown <= 0 {
		timeouts.Shutdown = DefaultShutdownTimeout
	}
	return &ExternalProcess{name: name, cfg: cfg, timeouts: timeouts, state: StateSpawning}
}

// Name returns the configured plugin name.
func (p *ExternalProcess) Name() string { return p.name }

// State returns the current supervision state.
func (p *ExternalProcess) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Restarts returns how many times the child has been respawned. The
// counter never resets.
func (p *ExternalProcess) Restarts() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.restarts
}

// LastError returns the most recent failure, if any.
func (p *ExternalProcess) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// PID returns the pid of the running child, or 0.
func (p *ExternalProcess) PID() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.conn == nil {
		return 0
	}
	return p.conn.cmd.Process.Pid
}

// Meta returns the metadata reported by the child after startup.
func (p *ExternalProcess) Meta() (protocol.Metadata, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.meta == nil {
		return protocol.Metadata{}, false
	}
	return *p.meta, true
}

// Start spawns the child and performs the startup lifecycle call. A spawn
// failure terminates the process; a failed handshake is a crash and the
// restart policy applies.
func (p *ExternalProcess) Start(ctx context.Context) error {
	c, err := p.spawn()
	if err != nil {
		p.terminate(err)
		return err
	}
	if !p.adopt(c) {
		return fmt.Errorf("%w: %s", ErrProcessTerminated, p.name)
	}
	if err := p.handshake(ctx, c); err != nil {
		if rerr := p.crashed(ctx, c, err); rerr != nil {
			return rerr
		}
	}
	p.fetchMetadata(ctx)
	return nil
}

// Matches asks the child whether it wants ev. Any process that is not
// Serving answers false without IPC.
func (p *ExternalProcess) Matches(ctx context.Context, ev *event.Context) bool {
	if p.State() != StateServing {
		return false
	}
	var res protocol.MatchesResult
	if err := p.call(ctx, protocol.MethodMatches, protocol.MatchesParamsFor(ev), &res); err != nil {
		logger.Warn("[Bridge:%s] matches failed: %v", p.name, err)
		return false
	}
	return res.Matches
}

// Handle forwards ev to the child.
func (p *ExternalProcess) Handle(ctx context.Context, ev *event.Context) (*protocol.HandleResult, error) {
	var res protocol.HandleResult
	if err := p.call(ctx, protocol.MethodHandle, protocol.HandleParamsFor(ev), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Metadata queries the child's metadata.
func (p *ExternalProcess) Metadata(ctx context.Context) (protocol.Metadata, error) {
	var meta protocol.Metadata
	err := p.call(ctx, protocol.MethodMetadata, nil, &meta)
	return meta, err
}

// Lifecycle delivers a lifecycle notice.
func (p *ExternalProcess) Lifecycle(ctx context.Context, ev protocol.LifecycleEvent) error {
	var res protocol.LifecycleResult
	return p.call(ctx, protocol.MethodLifecycle, protocol.LifecycleParams{Event: ev}, &res)
}

// Shutdown sends the shutdown notice with a bounded wait, then SIGTERM,
// then SIGKILL after the grace period. It always completes and leaves the
// process Terminated.
func (p *ExternalProcess) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	c, wasServing := p.conn, p.state == StateServing
	p.conn = nil
	p.state = StateTerminated
	p.mu.Unlock()

	if c == nil {
		return nil
	}
	if wasServing {
		sctx, cancel := context.WithTimeout(ctx, p.timeouts.Shutdown)
		var res protocol.LifecycleResult
		err := p.roundTrip(sctx, c, protocol.MethodLifecycle, protocol.LifecycleParams{Event: protocol.Shutdown}, &res)
		cancel()
		if err != nil {
			logger.Warn("[Bridge:%s] shutdown notice failed (process may be dead): %v", p.name, err)
		}
	}
	c.stop(p.timeouts.Grace)
	logger.Info("[Bridge:%s] process stopped", p.name)
	return nil
}

// call performs one round-trip against the current child and applies the
// crash policy on I/O failures and timeouts.
func (p *ExternalProcess) call(ctx context.Context, method string, params, out interface{}) error {
	p.mu.RLock()
	state, c := p.state, p.conn
	p.mu.RUnlock()

	switch {
	case state == StateTerminated:
		return fmt.Errorf("%w: %s", ErrProcessTerminated, p.name)
	case c == nil || state != StateServing:
		return fmt.Errorf("%w: %s is %s", ErrProcessCrashed, p.name, state)
	}

	err := p.roundTrip(ctx, c, method, params, out)
	if err != nil && errors.Is(err, ErrProcessCrashed) {
		_ = p.crashed(ctx, c, err)
	}
	return err
}

func (p *ExternalProcess) roundTrip(ctx context.Context, c *conn, method string, params, out interface{}) error {
	// One request in flight per connection.
	select {
	case c.slot <- struct{}{}:
	case <-c.closed:
		return fmt.Errorf("%w: %s: %v", ErrProcessCrashed, method, c.readErr)
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.slot }()

	id := p.nextID.Add(1)
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return err
	}

	ch, err := c.await(id)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProcessCrashed, method, err)
	}
	defer c.forget(id)

	if err := c.write(req); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrProcessCrashed, method, err)
	}

	timer := time.NewTimer(p.timeouts.Call)
	defer timer.Stop()

	select {
	case line := <-ch:
		return decodeInto(line, out)
	case <-c.closed:
		select {
		case line := <-ch:
			return decodeInto(line, out)
		default:
		}
		return fmt.Errorf("%w: %s: %v", ErrProcessCrashed, method, c.readErr)
	case <-timer.C:
		return fmt.Errorf("%w: %s after %s: %w", ErrProcessCrashed, method, p.timeouts.Call, protocol.ErrRPCTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeInto(line []byte, out interface{}) error {
	resp, err := protocol.DecodeResponse(line)
	if err != nil {
		return err
	}
	if err := resp.Validate(); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// adopt makes c the current connection and kills the one it replaces. It
// reports false, killing c, when the process was terminated meanwhile.
func (p *ExternalProcess) adopt(c *conn) bool {
	p.mu.Lock()
	if p.state == StateTerminated {
		p.mu.Unlock()
		c.kill()
		return false
	}
	prev := p.conn
	p.conn = c
	p.mu.Unlock()
	if prev != nil && prev != c {
		prev.kill()
	}
	return true
}

// handshake delivers the startup notice on c, which must already be the
// adopted connection, and moves the process to Serving.
func (p *ExternalProcess) handshake(ctx context.Context, c *conn) error {
	var res protocol.LifecycleResult
	if err := p.roundTrip(ctx, c, protocol.MethodLifecycle, protocol.LifecycleParams{Event: protocol.Startup}, &res); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateTerminated {
		return fmt.Errorf("%w: %s", ErrProcessTerminated, p.name)
	}
	if p.conn != c {
		return fmt.Errorf("%w: %s: connection replaced during startup", ErrProcessCrashed, p.name)
	}
	p.state = StateServing
	logger.Info("[Bridge:%s] serving (pid %d, restarts %d)", p.name, c.cmd.Process.Pid, p.restarts)
	return nil
}

func (p *ExternalProcess) fetchMetadata(ctx context.Context) {
	meta, err := p.Metadata(ctx)
	if err != nil {
		logger.Warn("[Bridge:%s] metadata unavailable: %v", p.name, err)
		return
	}
	p.mu.Lock()
	p.meta = &meta
	p.mu.Unlock()
}

// crashed applies the restart policy after c failed with cause. Only the
// first caller to observe a given connection's failure acts on it: the
// connection stays current until it is replaced, so later callers holding
// the same c find p.conn moved on and return.
func (p *ExternalProcess) crashed(ctx context.Context, c *conn, cause error) error {
	p.mu.Lock()
	if p.state == StateTerminated || p.state == StateCrashed || p.state == StateRestarting || p.conn != c {
		p.mu.Unlock()
		c.kill()
		return nil
	}
	p.state = StateCrashed
	p.lastErr = cause
	p.mu.Unlock()

	logger.Warn("[Bridge:%s] crashed: %v", p.name, cause)
	c.kill()

	for {
		p.mu.Lock()
		if p.state == StateTerminated {
			p.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrProcessTerminated, p.name)
		}
		if !p.cfg.AutoRestart || p.restarts >= p.cfg.Limit() {
			p.mu.Unlock()
			err := fmt.Errorf("%w: %s after %d restarts: %v", ErrRestartExhausted, p.name, p.Restarts(), cause)
			p.terminate(err)
			return err
		}
		p.restarts++
		p.state = StateRestarting
		attempt := p.restarts
		p.mu.Unlock()

		logger.Info("[Bridge:%s] restarting (%d/%d)", p.name, attempt, p.cfg.Limit())
		next, err := p.spawn()
		if err == nil {
			if !p.adopt(next) {
				return fmt.Errorf("%w: %s", ErrProcessTerminated, p.name)
			}
			if err = p.handshake(ctx, next); err == nil {
				return nil
			}
			next.kill()
		}
		cause = err
		p.mu.Lock()
		p.lastErr = err
		if p.state != StateTerminated {
			p.state = StateCrashed
		}
		p.mu.Unlock()
		logger.Warn("[Bridge:%s] restart %d failed: %v", p.name, attempt, err)
	}
}

func (p *ExternalProcess) terminate(cause error) {
	p.mu.Lock()
	c := p.conn
	p.conn = nil
	p.state = StateTerminated
	p.lastErr = cause
	p.mu.Unlock()
	if c != nil {
		c.kill()
	}
	logger.Error("[Bridge:%s] terminated: %v", p.name, cause)
}

func (p *ExternalProcess) spawn() (*conn, error) {
	cmd := exec.Command(p.cfg.Command, p.cfg.Args...)
	cmd.Dir = p.cfg.Cwd
	cmd.Env = p.cfg.Environ(os.Environ())

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: stdin: %v", ErrSpawnFailure, p.name, err)
	}
	// Owned pipes for stdout and stderr: Wait must not close them while
	// the reader goroutines are still draining.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: stdout: %v", ErrSpawnFailure, p.name, err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("%w: %s: stderr: %v", ErrSpawnFailure, p.name, err)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{outR, outW, errR, errW} {
			f.Close()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailure, p.name, err)
	}
	outW.Close()
	errW.Close()

	c := &conn{
		name:    p.name,
		cmd:     cmd,
		slot:    make(chan struct{}, 1),
		stdin:   stdin,
		stdout:  outR,
		pending: make(map[uint64]chan []byte),
		closed:  make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go c.pump()
	go forwardStderr(p.name, errR)
	go func() {
		c.waitErr = cmd.Wait()
		close(c.exited)
	}()

	logger.Debug("[Bridge:%s] spawned %s (pid %d)", p.name, p.cfg.Command, cmd.Process.Pid)
	return c, nil
}

func forwardStderr(name string, r io.ReadCloser) {
	defer r.Close()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), protocol.MaxLineSize)
	for sc.Scan() {
		logger.Debug("[Bridge:%s] %s", name, sc.Text())
	}
}

// conn is one spawned child and its I/O channel. Calls are serialized
// through slot; the write half and the pending-response table each have
// their own lock.
type conn struct {
	name string
	cmd  *exec.Cmd
	slot chan struct{}

	writeMu sync.Mutex
	stdin   io.WriteCloser

	readMu  sync.Mutex
	stdout  *os.File
	pending map[uint64]chan []byte
	dead    bool
	readErr error
	closed  chan struct{}

	waitErr error
	exited  chan struct{}

	stopOnce sync.Once
}

func (c *conn) write(req *protocol.Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteMessage(c.stdin, req)
}

func (c *conn) await(id uint64) (chan []byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	if c.dead {
		return nil, c.readErr
	}
	ch := make(chan []byte, 1)
	c.pending[id] = ch
	return ch, nil
}

func (c *conn) forget(id uint64) {
	c.readMu.Lock()
	delete(c.pending, id)
	c.readMu.Unlock()
}

// pump routes each response line to the caller awaiting its id. Lines that
// are malformed or carry an unknown id are logged and skipped.
func (c *conn) pump() {
	lines := protocol.NewLineReader(c.stdout)
	for {
		line, err := lines.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			c.readMu.Lock()
			c.dead = true
			c.readErr = fmt.Errorf("read: %w", err)
			c.readMu.Unlock()
			close(c.closed)
			return
		}
		id, ok := protocol.PeekID(line)
		if !ok {
			logger.Warn("[Bridge:%s] skipping malformed line: %.120s", c.name, line)
			continue
		}
		c.readMu.Lock()
		ch, ok := c.pending[id]
		delete(c.pending, id)
		c.readMu.Unlock()
		if !ok {
			logger.Warn("[Bridge:%s] skipping response with unexpected id %d", c.name, id)
			continue
		}
		ch <- line
	}
}

// kill force-stops the child without a grace period.
func (c *conn) kill() {
	c.stopOnce.Do(func() {
		c.stdin.Close()
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("[Bridge:%s] kill: %v", c.name, err)
		}
		<-c.exited
		c.stdout.Close()
	})
}

// stop sends SIGTERM, waits grace, then SIGKILLs.
func (c *conn) stop(grace time.Duration) {
	c.stopOnce.Do(func() {
		c.stdin.Close()
		defer c.stdout.Close()

		select {
		case <-c.exited:
			return
		default:
		}
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("[Bridge:%s] SIGTERM: %v", c.name, err)
		}

		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-c.exited:
			return
		case <-timer.C:
		}

		logger.Warn("[Bridge:%s] did not exit within %s, killing", c.name, grace)
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("[Bridge:%s] kill: %v", c.name, err)
		}
		<-c.exited
	})
}
