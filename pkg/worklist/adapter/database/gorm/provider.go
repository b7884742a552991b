// Package gorm opens GORM connections for the database entries of the worklist configuration.
// Dialects register themselves from the sqlite, postgres and mysql subpackages.
package gorm

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

const module = "database"

// DialectorFactory builds a gorm.Dialector for one database entry.
type DialectorFactory func(cfg config.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers the factory for a database type. A later registration replaces the earlier one.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory returns the factory registered for dbType.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, exception.NewWorklistErrorf(exception.KindConfig, module, "no dialector registered for database type '%s'", dbType)
	}
	return factory, nil
}

// Open connects to the database described by dbConfig and applies its pool settings.
func Open(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	factory, err := GetDialectorFactory(dbConfig.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(dbConfig)
	if err != nil {
		return nil, exception.NewWorklistError(exception.KindConfig, module,
			fmt.Sprintf("failed to create dialector for %s", dbConfig.Type), err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if dbConfig.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.Pool.MaxOpenConns)
	}
	if dbConfig.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.Pool.MaxIdleConns)
	}
	if dbConfig.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("Established new DB connection (%s).", dbConfig.Type)
	return db, nil
}

// OpenNamed opens the database entry called name.
func OpenNamed(cfg *config.Config, name string) (*gorm.DB, error) {
	dbConfig, err := cfg.Database(name)
	if err != nil {
		return nil, err
	}
	return Open(dbConfig)
}

// Close closes the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
