package config

import (
	"fmt"

	"github.com/macropower/rulelabel/api/v1beta1/configs"
)

// Load reads, validates and decodes the configuration file at path.
// Omitted fields are set to their defaults. A missing file yields an error
// matching [os.ErrNotExist].
func Load(path string, opts ...LoaderOpt) (*configs.Config, error) {
	l, err := NewLoaderFromFile(path, newConfig, configs.DefaultValidator, opts...)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	err = l.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config %q: %w", path, err)
	}

	cfg, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}

	return cfg, nil
}

// newConfig returns an empty config, so that decoded commands replace the
// defaults instead of being merged into them.
func newConfig() *configs.Config {
	return &configs.Config{}
}
