package options

import (
	"errors"

	"github.com/spf13/pflag"
)

// StorageOptions configures the embedded key/value store used by the
// built-in storage plugin.
type StorageOptions struct {
	// Path is the BoltDB file. Default: "data/echobot.db".
	Path string `json:"path" mapstructure:"path"`
}

func NewStorageOptions() *StorageOptions {
	return &StorageOptions{
		Path: "data/echobot.db",
	}
}

func (o *StorageOptions) Validate() []error {
	if o.Path == "" {
		return []error{errors.New("storage.path is required")}
	}
	return nil
}

func (o *StorageOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Path, "storage.path", o.Path, "Path to the BoltDB file backing plugin storage.")
}
