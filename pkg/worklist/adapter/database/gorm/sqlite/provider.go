// Package sqlite registers the SQLite dialector with the gorm adapter.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	gormadapter "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm"
	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
)

// Type is the database type handled by this package.
const Type = "sqlite"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the file path; GORM's SQLite dialector takes it as the DSN.
func ConnectionString(c config.DatabaseConfig) string {
	return c.Database
}
