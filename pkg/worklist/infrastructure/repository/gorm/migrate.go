package gorm

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	gormadapter "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm"
	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// MigrationsTable records the applied history schema version.
const MigrationsTable = "worklist_schema_migrations"

//go:embed migrations
var migrationsFS embed.FS

func databaseDriver(dbType string, sqlDB *sql.DB) (database.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}

// Migrate brings the run history schema of dbConfig up to date.
// It uses a connection of its own, because closing a migrate instance closes its database.
func Migrate(dbConfig config.DatabaseConfig) error {
	db, err := gormadapter.Open(dbConfig)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations/"+dbConfig.Type)
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to create iofs source driver for %s: %w", dbConfig.Type, err)
	}
	dbDriver, err := databaseDriver(dbConfig.Type, sqlDB)
	if err != nil {
		sourceDriver.Close()
		sqlDB.Close()
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbConfig.Type, dbDriver)
	if err != nil {
		sourceDriver.Close()
		dbDriver.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("history migration failed (DB: %s): %w", dbConfig.Type, err)
	}
	version, _, _ := m.Version()
	logger.Infof("Run history schema is at version %d (%s).", version, dbConfig.Type)
	return nil
}
