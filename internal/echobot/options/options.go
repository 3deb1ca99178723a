package options

import (
	genericoptions "github.com/kiosk404/echobot/internal/pkg/options"
	"github.com/kiosk404/echobot/pkg/utils/cliflag"
	"github.com/kiosk404/echobot/pkg/utils/json"
)

// Options is the command line and config file surface of echobot. Bridge
// processes are configured in the `external-plugin-bridge` section of the
// same file, read through the plugin config store.
type Options struct {
	LogOptions     *genericoptions.LogOptions     `json:"log"      mapstructure:"log"`
	PluginOptions  *genericoptions.PluginsOptions `json:"plugins"  mapstructure:"plugins"`
	StorageOptions *genericoptions.StorageOptions `json:"storage"  mapstructure:"storage"`
	ServerOptions  *genericoptions.ServerOptions  `json:"server"   mapstructure:"server"`
	ConsoleOptions *genericoptions.ConsoleOptions `json:"console"  mapstructure:"console"`
	MetricsOptions *genericoptions.MetricsOptions `json:"metrics"  mapstructure:"metrics"`
}

func NewOptions() *Options {
	return &Options{
		LogOptions:     genericoptions.NewLogOptions(),
		PluginOptions:  genericoptions.NewPluginsOptions(),
		StorageOptions: genericoptions.NewStorageOptions(),
		ServerOptions:  genericoptions.NewServerOptions(),
		ConsoleOptions: genericoptions.NewConsoleOptions(),
		MetricsOptions: genericoptions.NewMetricsOptions(),
	}
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.PluginOptions.AddFlags(fss.FlagSet("plugins"))
	o.StorageOptions.AddFlags(fss.FlagSet("storage"))
	o.ServerOptions.AddFlags(fss.FlagSet("server"))
	o.ConsoleOptions.AddFlags(fss.FlagSet("console"))
	o.MetricsOptions.AddFlags(fss.FlagSet("metrics"))
	return fss
}

// Validate checks every option group.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.PluginOptions.Validate()...)
	errs = append(errs, o.StorageOptions.Validate()...)
	errs = append(errs, o.ServerOptions.Validate()...)
	errs = append(errs, o.ConsoleOptions.Validate()...)
	errs = append(errs, o.MetricsOptions.Validate()...)
	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)

	return string(data)
}

// Complete set default Options.
func (o *Options) Complete() error {
	if o.PluginOptions.Entries == nil {
		o.PluginOptions.Entries = make(map[string]genericoptions.PluginEntryConfig)
	}
	return nil
}
