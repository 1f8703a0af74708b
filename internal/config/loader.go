package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName names the user config directory.
	AppName = "toolflow"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "TOOLFLOW"

	// ConfigPathEnv names the environment variable holding an explicit
	// config file path.
	ConfigPathEnv = "TOOLFLOW_CONFIG_PATH"

	// LocalConfigFile is the config file looked up in the working directory.
	LocalConfigFile = "toolflow.yaml"
)

// Loader handles Viper-based configuration loading.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment bindings set.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("http.token", "TOOLFLOW_TOKEN", "TOOLFLOW_HTTP_TOKEN")

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.name", d.Server.Name)
	v.SetDefault("server.version", d.Server.Version)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.token", d.HTTP.Token)
	v.SetDefault("http.request_timeout", d.HTTP.RequestTimeout)
	v.SetDefault("runner.strict_placeholders", d.Runner.StrictPlaceholders)
	v.SetDefault("runner.strict_tools", d.Runner.StrictTools)
	v.SetDefault("runner.step_timeout", d.Runner.StepTimeout)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.output", d.Tracing.Output)
}

// Load discovers and loads configuration using the documented priority order.
// Finding no config file is not an error; defaults and environment apply.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return l.LoadFromFile(path)
	}

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return l.LoadFromFile(path)
		}
	}

	return l.unmarshal()
}

// LoadFromFile loads configuration from the file at path. The format is
// taken from the extension (YAML when there is none).
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		l.v.SetConfigType("yaml")
	}
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return l.unmarshal()
}

// ConfigFileUsed returns the path of the file last read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	switch c.Log.Format {
	case "", "human", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"human\" or \"json\", got %q", c.Log.Format))
	}
	if c.Runner.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("runner.step_timeout must not be negative"))
	}
	for i, t := range c.Tools {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("tools[%d]: name is required", i))
		}
		for _, kv := range t.Env {
			if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
				errs = append(errs, fmt.Errorf("tools[%d]: env entry %q is not KEY=VALUE", i, kv))
			}
		}
	}
	for name, steps := range c.Workflows {
		for i, s := range steps {
			if s.Tool == "" {
				errs = append(errs, fmt.Errorf("workflows.%s[%d]: tool is required", name, i))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func searchPaths() []string {
	var paths []string
	if p, err := DefaultConfigPath(); err == nil {
		paths = append(paths, p)
	}
	return append(paths, LocalConfigFile)
}

// ConfigDir returns the platform-standard toolflow config directory.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// DefaultConfigPath returns the user-level config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
