package util

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bytedance/gg/gptr"
	"github.com/spf13/pflag"

	"github.com/kiosk404/echobot/internal/echobot/service/bridge"
)

// ProcessFlags configures a one-shot external plugin process.
type ProcessFlags struct {
	Cwd     string
	Env     map[string]string
	Timeout time.Duration
}

func NewProcessFlags() *ProcessFlags {
	return &ProcessFlags{Timeout: bridge.DefaultCallTimeout}
}

func (f *ProcessFlags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Cwd, "cwd", f.Cwd, "Working directory of the plugin process.")
	fs.StringToStringVar(&f.Env, "env", f.Env, "Extra environment for the plugin process, KEY=VALUE.")
	fs.DurationVar(&f.Timeout, "timeout", f.Timeout, "Timeout of each call to the plugin.")
}

// Start spawns argv as an external plugin without restarts and waits for it
// to acknowledge startup.
func (f *ProcessFlags) Start(ctx context.Context, argv []string) (*bridge.ExternalProcess, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty plugin command")
	}
	if f.Timeout <= 0 {
		return nil, fmt.Errorf("--timeout must be positive")
	}
	cfg := bridge.ProcessConfig{
		Command:     argv[0],
		Args:        argv[1:],
		Cwd:         f.Cwd,
		Env:         f.Env,
		MaxRestarts: gptr.Of(0),
	}
	timeouts := bridge.DefaultTimeouts()
	timeouts.Call = f.Timeout

	p := bridge.NewExternalProcess(filepath.Base(argv[0]), cfg, timeouts)
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	if p.State() != bridge.StateServing {
		return nil, fmt.Errorf("plugin %s is %s: %v", p.Name(), p.State(), p.LastError())
	}
	return p, nil
}

// Stop shuts p down, bounded by the process's own shutdown timeouts.
func Stop(p *bridge.ExternalProcess) {
	_ = p.Shutdown(context.Background())
}
