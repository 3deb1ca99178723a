package options

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/kiosk404/echobot/pkg/logger"
)

// LogOptions configures the process-wide logger.
type LogOptions struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	// OutputPath is a file path, "stdout" or "stderr".
	OutputPath string `json:"output-path" mapstructure:"output-path"`
}

func NewLogOptions() *LogOptions {
	return &LogOptions{
		Level:      "info",
		Format:     "text",
		OutputPath: "stderr",
	}
}

func (o *LogOptions) Validate() []error {
	var errs []error
	if _, err := logrus.ParseLevel(o.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", o.Level))
	}
	if o.Format != "text" && o.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q, must be 'text' or 'json'", o.Format))
	}
	return errs
}

// ToLogger converts the options into logger.Options.
func (o *LogOptions) ToLogger() logger.Options {
	return logger.Options{Level: o.Level, Format: o.Format, OutputPath: o.OutputPath}
}

func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level: debug, info, warn or error.")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log format: 'text' or 'json'.")
	fs.StringVar(&o.OutputPath, "log.output-path", o.OutputPath, "Log file path, or stdout/stderr.")
}
