package config

import (
	"go.uber.org/fx"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig      // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string              `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
	Expander       EnvironmentExpander `optional:"true"`
}

// NewConfigProvider is an Fx provider that loads, validates and provides *Config.
// It also sets the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	expander := params.Expander
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, expander)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Worklist.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Worklist.System.Logging.Level)
	return cfg, nil
}

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Worklist.System.Logging
}

// NewTableConfigProvider extracts *TableConfig from *Config.
func NewTableConfigProvider(cfg *Config) *TableConfig {
	return &cfg.Worklist.Table
}

// NewRunnerConfigProvider extracts *RunnerConfig from *Config.
func NewRunnerConfigProvider(cfg *Config) *RunnerConfig {
	return &cfg.Worklist.Runner
}

// NewMetricsConfigProvider extracts *MetricsConfig from *Config.
func NewMetricsConfigProvider(cfg *Config) *MetricsConfig {
	return &cfg.Worklist.Metrics
}

// NewTracingConfigProvider extracts *TracingConfig from *Config.
func NewTracingConfigProvider(cfg *Config) *TracingConfig {
	return &cfg.Worklist.Tracing
}

// Module provides *Config and its sections to Fx. The application supplies EmbeddedConfig.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewTableConfigProvider),
	fx.Provide(NewRunnerConfigProvider),
	fx.Provide(NewMetricsConfigProvider),
	fx.Provide(NewTracingConfigProvider),
)
