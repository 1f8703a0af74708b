// Package config provides configuration loading and management for toolflow.
//
// Configuration is loaded using Viper, supporting YAML (or JSON) config files
// and environment variable overrides. [DefaultConfig] works out of the box
// without any file.
//
// Key types:
//   - [Config] is the root configuration container
//   - [Loader] handles Viper-based configuration loading
//   - [ToolConfig] declares a tool handler (HTTP endpoint or local command)
//   - [StepConfig] declares one step of a workflow defined in the config file
//
// Configuration priority (highest to lowest):
//  1. Environment variables (TOOLFLOW_ prefix, "." replaced by "_";
//     TOOLFLOW_TOKEN is an alias for http.token)
//  2. Config file specified by TOOLFLOW_CONFIG_PATH
//  3. User config directory: <os.UserConfigDir>/toolflow/config.yaml
//  4. ./toolflow.yaml
//  5. [DefaultConfig] defaults
//
// Viper folds keys to lower case, so workflow and parameter names declared in
// a config file are lower-cased, as are the keys of any other mapping in the
// file. Values are left alone, which is why command tool environment is a list
// of KEY=VALUE strings. Definition files loaded by the catalog package keep
// their case.
package config

import "time"

// Config represents the root configuration structure.
type Config struct {
	// Server identifies this process to protocol clients.
	Server ServerConfig `mapstructure:"server"`

	// HTTP configures the HTTP transport.
	HTTP HTTPConfig `mapstructure:"http"`

	// Runner configures workflow execution.
	Runner RunnerConfig `mapstructure:"runner"`

	// Log configures the zap logger.
	Log LogConfig `mapstructure:"log"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `mapstructure:"tracing"`

	// Tools declares tool handlers. Tools without a handler return a stub
	// result unless Runner.StrictTools is set.
	Tools []ToolConfig `mapstructure:"tools"`

	// Workflows declares additional workflows, keyed by name. They are
	// registered after the built-in set and replace built-ins of the same name.
	Workflows map[string][]StepConfig `mapstructure:"workflows"`
}

// ServerConfig holds the name and version reported to protocol clients.
type ServerConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// HTTPConfig contains HTTP transport settings.
type HTTPConfig struct {
	// Addr is the listen address. Default: ":3000"
	Addr string `mapstructure:"addr"`

	// Token, when set, is required as a bearer token on /mcp and /workflows.
	Token string `mapstructure:"token"`

	// RequestTimeout bounds each request. Default: 60s
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RunnerConfig contains workflow execution settings.
type RunnerConfig struct {
	// StrictPlaceholders fails a run when a placeholder resolves to nothing,
	// instead of omitting the parameter. Default: false
	StrictPlaceholders bool `mapstructure:"strict_placeholders"`

	// StrictTools fails a step whose tool has no handler, instead of
	// returning the stub result. Default: false
	StrictTools bool `mapstructure:"strict_tools"`

	// StepTimeout bounds each tool invocation. Zero means no bound.
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Debug  bool   `mapstructure:"debug"`
	Format string `mapstructure:"format"` // "human" or "json"
	File   string `mapstructure:"file"`
}

// TracingConfig contains span export settings.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Output is a file path for exported spans; empty means stderr.
	Output string `mapstructure:"output"`
}

// ToolConfig declares one tool handler.
type ToolConfig struct {
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"` // "http" or "command"
	Description string `mapstructure:"description"`

	// HTTP backend
	Endpoint     string        `mapstructure:"endpoint"`
	Method       string        `mapstructure:"method"` // default POST
	Token        string        `mapstructure:"token"`
	AuthHeader   string        `mapstructure:"auth_header"` // default Authorization
	ResponsePath string        `mapstructure:"response_path"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`

	// Command backend: argv, plus extra KEY=VALUE environment entries on top
	// of the process's. Env is a list so variable names keep their case.
	Command []string `mapstructure:"command"`
	Env     []string `mapstructure:"env"`
}

// StepConfig is one workflow step as declared in a config file.
type StepConfig struct {
	Tool   string                 `mapstructure:"tool"`
	Params map[string]interface{} `mapstructure:"params"`
}

// DefaultConfig returns a new [Config] with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "multi-tool-orchestrator",
			Version: "0.1.0",
		},
		HTTP: HTTPConfig{
			Addr:           ":3000",
			RequestTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Format: "human",
		},
	}
}
