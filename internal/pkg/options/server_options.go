package options

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/pflag"
)

// ServerOptions configures the HTTP status server.
type ServerOptions struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port" mapstructure:"bind-port"`
	// Mode is the gin mode: debug, release or test.
	Mode      string `json:"mode" mapstructure:"mode"`
	Profiling bool   `json:"profiling" mapstructure:"profiling"`
	// Token, when set, is required as a Bearer token from non-loopback
	// clients on every route except /healthz.
	Token string `json:"-" mapstructure:"token"`
}

func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		Enabled:     true,
		BindAddress: "127.0.0.1",
		BindPort:    8099,
		Mode:        "release",
	}
}

// Address returns host:port.
func (o *ServerOptions) Address() string {
	return net.JoinHostPort(o.BindAddress, strconv.Itoa(o.BindPort))
}

func (o *ServerOptions) Validate() []error {
	var errs []error
	if !o.Enabled {
		return nil
	}
	if o.BindPort < 0 || o.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("--server.bind-port %d must be between 0 and 65535", o.BindPort))
	}
	switch o.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("invalid server mode %q", o.Mode))
	}
	return errs
}

func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "server.enabled", o.Enabled, "Serve the HTTP status endpoints.")
	fs.StringVar(&o.BindAddress, "server.bind-address", o.BindAddress, "Address the status server listens on.")
	fs.IntVar(&o.BindPort, "server.bind-port", o.BindPort, "Port the status server listens on.")
	fs.StringVar(&o.Mode, "server.mode", o.Mode, "Gin mode: debug, release or test.")
	fs.BoolVar(&o.Profiling, "server.profiling", o.Profiling, "Expose pprof under /debug/pprof.")
	fs.StringVar(&o.Token, "server.token", o.Token, "Bearer token required from remote clients (env ECHOBOT_SERVER_TOKEN).")
}
