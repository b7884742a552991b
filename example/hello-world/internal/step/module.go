package step

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
)

// WorkName is the key of the greeting work under "works" in application.yaml.
const WorkName = "greeting"

// NewGreetingWorkProvider builds the greeting Work from configuration.
func NewGreetingWorkProvider(cfg *config.Config) (runner.Work[Person], error) {
	w, err := NewGreetingWork(cfg.WorkProperties(WorkName))
	if err != nil {
		return nil, err
	}
	return w.Work(cfg.Worklist.Runner.WorkersCount), nil
}

// Module provides runner.Work[Person].
var Module = fx.Options(
	fx.Provide(NewGreetingWorkProvider),
)
