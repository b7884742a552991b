package runner

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// NewPoolProvider creates the Pool shared by every runner of the application.
func NewPoolProvider(cfg *config.RunnerConfig) *Pool {
	pool := NewPool(cfg.MaxActiveRuns)
	logger.Debugf("Worker pool created with %d slot(s).", pool.Size())
	return pool
}

// Module provides the shared worker Pool. Runners are generic over their payload type and
// are therefore built by the application with NewWorkerRunner.
var Module = fx.Options(
	fx.Provide(NewPoolProvider),
)
