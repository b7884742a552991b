package config

import (
	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type"`     // Database type ("sqlite", "postgres", "mysql").
	Host     string     `yaml:"host"`     // Database host address.
	Port     int        `yaml:"port"`     // Database port number.
	Database string     `yaml:"database"` // Database name, or file path for sqlite.
	User     string     `yaml:"user"`
	Password string     `yaml:"password"`
	Sslmode  string     `yaml:"sslmode"`
	Pool     PoolConfig `yaml:"pool"`
}

// Database decodes the raw settings of the named database entry.
func (c *Config) Database(name string) (DatabaseConfig, error) {
	var dbConfig DatabaseConfig
	raw, ok := c.Worklist.Databases[name]
	if !ok {
		return dbConfig, exception.NewWorklistErrorf(exception.KindConfig, moduleName, "database '%s' is not configured", name)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           &dbConfig,
	})
	if err != nil {
		return dbConfig, exception.NewWorklistError(exception.KindConfig, moduleName, "failed to create database config decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return dbConfig, exception.NewWorklistErrorf(exception.KindConfig, moduleName, "failed to decode database '%s'", name, err)
	}
	return dbConfig, nil
}
