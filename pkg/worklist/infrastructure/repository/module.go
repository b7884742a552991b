// Package repository selects the run history store from configuration.
package repository

import (
	"context"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm"
	_ "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/repository"
	gormrepo "github.com/tigerroll/worklist/pkg/worklist/infrastructure/repository/gorm"
	"github.com/tigerroll/worklist/pkg/worklist/infrastructure/repository/inmemory"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// NewRunRepository keeps history in memory unless history.db_ref names a database entry.
// The repository is closed when the application stops.
func NewRunRepository(lc fx.Lifecycle, cfg *config.Config) (repository.RunRepository, error) {
	var repo repository.RunRepository
	if ref := cfg.Worklist.History.DBRef; ref == "" {
		logger.Infof("Run history: in memory.")
		repo = inmemory.NewInMemoryRunRepository()
	} else {
		dbConfig, err := cfg.Database(ref)
		if err != nil {
			return nil, err
		}
		if err := gormrepo.Migrate(dbConfig); err != nil {
			return nil, err
		}
		db, err := gormadapter.Open(dbConfig)
		if err != nil {
			return nil, err
		}
		logger.Infof("Run history: database '%s'.", ref)
		repo = gormrepo.NewGormRunRepository(db)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return repo.Close()
		},
	})
	return repo, nil
}

// Module provides repository.RunRepository.
var Module = fx.Options(
	fx.Provide(NewRunRepository),
)
