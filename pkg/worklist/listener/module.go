package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	"github.com/tigerroll/worklist/pkg/worklist/listener/history"
	"github.com/tigerroll/worklist/pkg/worklist/listener/logging"
	"github.com/tigerroll/worklist/pkg/worklist/listener/metrics"
)

// RunListenersGroup is the Fx value group the run listeners are provided in.
const RunListenersGroup = "run_listeners"

func asRunListener(constructor interface{}) fx.Option {
	return fx.Provide(fx.Annotate(
		constructor,
		fx.As(new(runner.RunListener)),
		fx.ResultTags(`group:"`+RunListenersGroup+`"`),
	))
}

// RunListeners receives every listener of the group.
type RunListeners struct {
	fx.In
	Listeners []runner.RunListener `group:"run_listeners"`
}

// Module provides the logging, metrics and history run listeners in RunListenersGroup.
var Module = fx.Options(
	asRunListener(logging.NewLoggingRunListener),
	asRunListener(metrics.NewMetricsRunListener),
	asRunListener(history.NewHistoryRunListener),
)
