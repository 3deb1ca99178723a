package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// MetricsOptions configures the in-memory dispatch metrics.
type MetricsOptions struct {
	// ReportInterval is how often changed counters are logged. Zero disables
	// periodic reports.
	ReportInterval time.Duration `json:"report-interval" mapstructure:"report-interval"`
}

func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		ReportInterval: time.Minute,
	}
}

func (o *MetricsOptions) Validate() []error {
	if o.ReportInterval != 0 && o.ReportInterval < time.Second {
		return []error{fmt.Errorf("metrics.report-interval %s must be at least 1s", o.ReportInterval)}
	}
	return nil
}

func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&o.ReportInterval, "metrics.report-interval", o.ReportInterval, "Interval between metrics log reports (0 disables).")
}
