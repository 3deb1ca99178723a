package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kiosk404/echobot/internal/echobot/protocol"
	"github.com/kiosk404/echobot/pkg/logger"
)

// Table holds the bridge's processes keyed by plugin name. It is filled
// during build and only read afterwards; each process synchronizes itself.
type Table struct {
	order []string
	procs map[string]*ExternalProcess
}

func NewTable() *Table {
	return &Table{procs: make(map[string]*ExternalProcess)}
}

func (t *Table) add(p *ExternalProcess) error {
	if _, ok := t.procs[p.Name()]; ok {
		return fmt.Errorf("external plugin %q registered twice", p.Name())
	}
	t.procs[p.Name()] = p
	t.order = append(t.order, p.Name())
	return nil
}

// Len returns the number of configured processes.
func (t *Table) Len() int { return len(t.order) }

// Get returns the process configured under name.
func (t *Table) Get(name string) (*ExternalProcess, bool) {
	p, ok := t.procs[name]
	return p, ok
}

// Processes returns every process in configured order.
func (t *Table) Processes() []*ExternalProcess {
	out := make([]*ExternalProcess, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.procs[name])
	}
	return out
}

// Serving returns the processes currently in the Serving state.
func (t *Table) Serving() []*ExternalProcess {
	var out []*ExternalProcess
	for _, p := range t.Processes() {
		if p.State() == StateServing {
			out = append(out, p)
		}
	}
	return out
}

// ProcessInfo is a point-in-time view of one process.
type ProcessInfo struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Restarts  int    `json:"restarts"`
	PID       int    `json:"pid"`
	LastError string `json:"last_error,omitempty"`
}

// Infos describes every process in configured order.
func (t *Table) Infos() []ProcessInfo {
	procs := t.Processes()
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		info := ProcessInfo{Name: p.Name(), State: p.State().String(), Restarts: p.Restarts(), PID: p.PID()}
		if err := p.LastError(); err != nil {
			info.LastError = err.Error()
		}
		out = append(out, info)
	}
	return out
}

// Broadcast delivers a lifecycle notice to every Serving process.
func (t *Table) Broadcast(ctx context.Context, ev protocol.LifecycleEvent) error {
	var errs []error
	for _, p := range t.Serving() {
		if err := p.Lifecycle(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("external plugin %q %s: %w", p.Name(), ev, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops every process concurrently and waits for all of them.
func (t *Table) Shutdown(ctx context.Context) error {
	procs := t.Processes()
	if len(procs) == 0 {
		return nil
	}
	logger.Info("[Bridge] shutting down %d external plugins...", len(procs))

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for _, p := range procs {
		wg.Add(1)
		go func(p *ExternalProcess) {
			defer wg.Done()
			if err := p.Shutdown(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("external plugin %q: %w", p.Name(), err))
				errMu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	logger.Info("[Bridge] all external plugins stopped")
	return errors.Join(errs...)
}
