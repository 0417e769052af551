package notewire

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors config.yaml in the data directory. Every field is
// optional; flags and options take precedence over the file.
type FileConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // Go duration string, e.g. "15s"
	DataDir string `yaml:"data_dir"`
}

// LoadFileConfig reads a YAML config file. A missing file yields an empty
// config rather than an error.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Options translates the file config into facade options.
func (c *FileConfig) Options() ([]Option, error) {
	var opts []Option
	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.DataDir != "" {
		opts = append(opts, WithDataDir(c.DataDir))
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q in config: %w", c.Timeout, err)
		}
		opts = append(opts, WithTimeout(d))
	}
	return opts, nil
}
