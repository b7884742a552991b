package repository_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	"github.com/tigerroll/worklist/pkg/worklist/infrastructure/repository"
	gormrepo "github.com/tigerroll/worklist/pkg/worklist/infrastructure/repository/gorm"
	"github.com/tigerroll/worklist/pkg/worklist/infrastructure/repository/inmemory"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

func TestNewRunRepository_DefaultsToMemory(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	repo, err := repository.NewRunRepository(lc, config.NewConfig())
	require.NoError(t, err)
	assert.IsType(t, &inmemory.InMemoryRunRepository{}, repo)
	lc.RequireStart().RequireStop()
}

func TestNewRunRepository_Database(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Worklist.History.DBRef = "history"
	cfg.Worklist.Databases["history"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "history.db"),
	}

	lc := fxtest.NewLifecycle(t)
	repo, err := repository.NewRunRepository(lc, cfg)
	require.NoError(t, err)
	assert.IsType(t, &gormrepo.GormRunRepository{}, repo)
	lc.RequireStart().RequireStop()
}

func TestNewRunRepository_UnknownReference(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Worklist.History.DBRef = "missing"

	_, err := repository.NewRunRepository(fxtest.NewLifecycle(t), cfg)
	require.Error(t, err)
	assert.True(t, exception.IsConfig(err))
}
