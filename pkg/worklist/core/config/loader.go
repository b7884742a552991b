package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

const moduleName = "config"

// LoadConfig loads configuration from the embedded YAML and environment variables and validates it.
//
// Order: defaults from NewConfig, then the embedded YAML (after ${VAR} expansion), then
// environment variables named after the yaml tag path (e.g. WORKLIST_RUNNER_WORKERS_COUNT).
// Variables from envFilePath (or ./.env when empty) are loaded first and never override the process environment.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, NewOsEnvironmentExpander())
}

func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewWorklistError(exception.KindConfig, moduleName, "failed to expand environment variables in config", err)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewWorklistError(exception.KindConfig, moduleName, "failed to unmarshal embedded config", err)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewWorklistError(exception.KindConfig, moduleName, "failed to load config from environment variables", err)
	}
	cfg.EmbeddedConfig = embeddedConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	w := c.Worklist

	switch LogLevel(strings.ToUpper(w.System.Logging.Level)) {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal, LogLevelSilent:
	default:
		result = multierror.Append(result, fmt.Errorf("system.logging.level: unknown level '%s'", w.System.Logging.Level))
	}
	if w.Runner.WorkersCount < 0 {
		result = multierror.Append(result, fmt.Errorf("runner.workers_count must not be negative, got %d", w.Runner.WorkersCount))
	}
	if w.Runner.MaxActiveRuns < 0 {
		result = multierror.Append(result, fmt.Errorf("runner.max_active_runs must not be negative, got %d", w.Runner.MaxActiveRuns))
	}
	if w.Metrics.Enabled && w.Metrics.AsyncBufferSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("metrics.async_buffer_size must be positive when metrics are enabled"))
	}
	if w.Metrics.Enabled {
		switch w.Metrics.Exporter {
		case "", MetricsExporterPrometheus:
		case MetricsExporterOTLPHTTP, MetricsExporterOTLPGRPC:
			if w.Metrics.Endpoint == "" {
				result = multierror.Append(result, fmt.Errorf("metrics.endpoint is required for exporter '%s'", w.Metrics.Exporter))
			}
		default:
			result = multierror.Append(result, fmt.Errorf("metrics.exporter: unknown exporter '%s'", w.Metrics.Exporter))
		}
	}
	switch w.Tracing.Exporter {
	case "", TracingExporterNone:
	case TracingExporterOTLPHTTP, TracingExporterOTLPGRPC:
		if w.Tracing.Endpoint == "" {
			result = multierror.Append(result, fmt.Errorf("tracing.endpoint is required for exporter '%s'", w.Tracing.Exporter))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("tracing.exporter: unknown exporter '%s'", w.Tracing.Exporter))
	}
	if w.History.DBRef != "" {
		if _, err := c.Database(w.History.DBRef); err != nil {
			result = multierror.Append(result, fmt.Errorf("history.db_ref: %w", err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return exception.NewWorklistError(exception.KindConfig, moduleName, "invalid configuration", err)
	}
	return nil
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite destConfig unless they are the zero value for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeWorklistConfig(&destConfig.Worklist, &sourceConfig.Worklist)
}

func mergeWorklistConfig(dest, source *WorklistConfig) {
	if source.System.Logging.Level != "" {
		dest.System.Logging.Level = source.System.Logging.Level
	}
	mergeTableConfig(&dest.Table, &source.Table)
	mergeRunnerConfig(&dest.Runner, &source.Runner)

	if source.Metrics.Enabled {
		dest.Metrics.Enabled = true
	}
	if source.Metrics.Exporter != "" {
		dest.Metrics.Exporter = source.Metrics.Exporter
	}
	if source.Metrics.Endpoint != "" {
		dest.Metrics.Endpoint = source.Metrics.Endpoint
	}
	if source.Metrics.Insecure {
		dest.Metrics.Insecure = true
	}
	if source.Metrics.AsyncBufferSize != 0 {
		dest.Metrics.AsyncBufferSize = source.Metrics.AsyncBufferSize
	}

	if source.Tracing.Exporter != "" {
		dest.Tracing.Exporter = source.Tracing.Exporter
	}
	if source.Tracing.Endpoint != "" {
		dest.Tracing.Endpoint = source.Tracing.Endpoint
	}
	if source.Tracing.Insecure {
		dest.Tracing.Insecure = true
	}
	if source.Tracing.ServiceName != "" {
		dest.Tracing.ServiceName = source.Tracing.ServiceName
	}

	if source.History.DBRef != "" {
		dest.History.DBRef = source.History.DBRef
	}
	if source.Instance.LockFile != "" {
		dest.Instance.LockFile = source.Instance.LockFile
	}

	for key, value := range source.Databases {
		if dest.Databases == nil {
			dest.Databases = make(map[string]interface{})
		}
		dest.Databases[key] = value
	}
	for key, value := range source.Works {
		if dest.Works == nil {
			dest.Works = make(map[string]WorkConfig)
		}
		dest.Works[key] = value
	}
}

func mergeTableConfig(dest, source *TableConfig) {
	if source.SelectColumnLabel != "" {
		dest.SelectColumnLabel = source.SelectColumnLabel
	}
	if source.StatusColumnLabel != "" {
		dest.StatusColumnLabel = source.StatusColumnLabel
	}
	if source.WaitingText != "" {
		dest.WaitingText = source.WaitingText
	}
	if source.DefaultChecked {
		dest.DefaultChecked = true
	}
	if source.DisableOnSuccess {
		dest.DisableOnSuccess = true
	}
}

func mergeRunnerConfig(dest, source *RunnerConfig) {
	if source.WorkersCount != 0 {
		dest.WorkersCount = source.WorkersCount
	}
	if source.MaxActiveRuns != 0 {
		dest.MaxActiveRuns = source.MaxActiveRuns
	}
	if source.ErrorCode != 0 {
		dest.ErrorCode = source.ErrorCode
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag path to build the variable name.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Map {
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct {
				if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
					return err
				}
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv loads fields of type map[string]struct{} from environment variables.
//
// Example: WORKLIST_WORKS_GREET_<FIELD>=value sets <FIELD> of the entry "greet".
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndFieldParts := strings.Split(parts[0], "_")
		if len(keyAndFieldParts) < 2 {
			continue
		}
		mapKey := strings.ToLower(keyAndFieldParts[0])
		structFieldName := strings.Join(keyAndFieldParts[1:], "_")

		structVal := reflect.New(elemType).Elem()
		if existing := mapField.MapIndex(reflect.ValueOf(mapKey)); existing.IsValid() {
			structVal.Set(existing)
		}
		if err := setStructFieldFromEnv(structVal, structFieldName, parts[1]); err != nil {
			return err
		}
		mapField.SetMapIndex(reflect.ValueOf(mapKey), structVal)
	}
	return nil
}

// setStructFieldFromEnv sets the field whose yaml tag matches fieldName case-insensitively.
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		yamlTag := typ.Field(i).Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, fieldName) {
			return setField(structVal.Field(i), value)
		}
	}
	return nil
}

// setField sets a string, int, float or bool field from its text form.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
