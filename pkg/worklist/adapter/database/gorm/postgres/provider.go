// Package postgres registers the PostgreSQL dialector with the gorm adapter.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	gormadapter "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm"
	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
)

// Type is the database type handled by this package.
const Type = "postgres"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a key/value DSN. An empty sslmode becomes "disable".
func ConnectionString(c config.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}
