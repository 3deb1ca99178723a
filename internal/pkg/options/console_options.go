package options

import (
	"errors"

	"github.com/spf13/pflag"
)

// ConsoleOptions configures the stdin/stdout driver that stands in for a
// chat transport.
type ConsoleOptions struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// UserID is the sender of every console line.
	UserID int64 `json:"user-id" mapstructure:"user-id"`
	// SelfID is the bot account announced by ":connect".
	SelfID int64 `json:"self-id" mapstructure:"self-id"`
	// GroupID makes console lines group messages when non-zero.
	GroupID  int64  `json:"group-id" mapstructure:"group-id"`
	Nickname string `json:"nickname" mapstructure:"nickname"`
}

func NewConsoleOptions() *ConsoleOptions {
	return &ConsoleOptions{
		Enabled:  true,
		UserID:   10000,
		SelfID:   10001,
		Nickname: "console",
	}
}

func (o *ConsoleOptions) Validate() []error {
	var errs []error
	if o.UserID <= 0 {
		errs = append(errs, errors.New("console.user-id must be positive"))
	}
	if o.SelfID <= 0 {
		errs = append(errs, errors.New("console.self-id must be positive"))
	}
	return errs
}

func (o *ConsoleOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "console.enabled", o.Enabled, "Read messages from stdin and print replies to stdout.")
	fs.Int64Var(&o.UserID, "console.user-id", o.UserID, "User id attached to console messages.")
	fs.Int64Var(&o.SelfID, "console.self-id", o.SelfID, "Bot id announced on :connect.")
	fs.Int64Var(&o.GroupID, "console.group-id", o.GroupID, "Send console messages as this group (0 for private).")
	fs.StringVar(&o.Nickname, "console.nickname", o.Nickname, "Sender name attached to console messages.")
}
