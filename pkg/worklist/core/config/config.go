// Package config provides the configuration structures of the worklist engine and their loader.
package config

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// Metric exporters understood by the infrastructure layer.
const (
	MetricsExporterPrometheus = "prometheus"
	MetricsExporterOTLPHTTP   = "otlphttp"
	MetricsExporterOTLPGRPC   = "otlpgrpc"
)

// Tracing exporters understood by the infrastructure layer.
const (
	TracingExporterNone     = "none"
	TracingExporterOTLPHTTP = "otlphttp"
	TracingExporterOTLPGRPC = "otlpgrpc"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// TableConfig holds the presentation defaults of a work table.
type TableConfig struct {
	SelectColumnLabel string `yaml:"select_column_label"` // Header label of the check column.
	StatusColumnLabel string `yaml:"status_column_label"` // Header label of the status column.
	WaitingText       string `yaml:"waiting_text"`        // Initial status text of new rows.
	DefaultChecked    bool   `yaml:"default_checked"`     // Check state of rows added without an explicit one.
	DisableOnSuccess  bool   `yaml:"disable_on_success"`  // Whether succeeded rows lose their check box.
}

// RunnerConfig holds worker settings.
type RunnerConfig struct {
	// WorkersCount is the per-item concurrency inside one run. 0 selects min(2 x CPU, 16).
	WorkersCount int `yaml:"workers_count"`
	// MaxActiveRuns bounds how many runs execute at the same time. 0 selects min(2 x CPU, 16).
	MaxActiveRuns int `yaml:"max_active_runs"`
	// ErrorCode is passed to the failure callback when a run fails.
	ErrorCode int `yaml:"error_code"`
}

// MetricsConfig holds metric recording settings.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "prometheus", "otlphttp" or "otlpgrpc".
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	// AsyncBufferSize is the buffer size for asynchronous metric recording.
	AsyncBufferSize int `yaml:"async_buffer_size"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Exporter    string `yaml:"exporter"` // "none", "otlphttp" or "otlpgrpc".
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// HistoryConfig selects where run history is kept.
type HistoryConfig struct {
	// DBRef names an entry of the database section. Empty keeps history in memory.
	DBRef string `yaml:"db_ref"`
}

// InstanceConfig holds single-instance settings.
type InstanceConfig struct {
	// LockFile is the path of the lock file. Empty disables the lock.
	LockFile string `yaml:"lock_file"`
}

// WorkConfig holds the settings of one named work.
type WorkConfig struct {
	Properties map[string]string `yaml:"properties"`
}

// WorklistConfig holds all configuration under the "worklist" top-level key.
type WorklistConfig struct {
	System   SystemConfig   `yaml:"system"`
	Table    TableConfig    `yaml:"table"`
	Runner   RunnerConfig   `yaml:"runner"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	History  HistoryConfig  `yaml:"history"`
	Instance InstanceConfig `yaml:"instance"`
	// Databases holds raw database connection settings keyed by name; see Config.Database.
	Databases map[string]interface{} `yaml:"database"`
	// Works holds per-work properties keyed by work name.
	Works map[string]WorkConfig `yaml:"works"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Worklist WorklistConfig `yaml:"worklist"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Worklist: WorklistConfig{
			System: SystemConfig{
				Logging: LoggingConfig{Level: string(LogLevelInfo)},
			},
			Table: TableConfig{
				SelectColumnLabel: "Select",
				StatusColumnLabel: "Status",
				WaitingText:       "waiting",
			},
			Runner: RunnerConfig{
				ErrorCode: 1,
			},
			Metrics: MetricsConfig{
				Exporter:        MetricsExporterPrometheus,
				AsyncBufferSize: 100,
			},
			Tracing: TracingConfig{
				Exporter:    TracingExporterNone,
				ServiceName: "worklist",
			},
			Databases: map[string]interface{}{},
			Works:     map[string]WorkConfig{},
		},
	}
}

// WorkProperties returns the properties of the named work, or nil.
func (c *Config) WorkProperties(name string) map[string]string {
	w, ok := c.Worklist.Works[name]
	if !ok {
		return nil
	}
	return w.Properties
}
