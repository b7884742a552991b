package logger

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const modulePrefix = "github.com/tigerroll/worklist/"

// FxLoggerAdapter writes fx lifecycle events to the worklist logger.
// Routine wiring events go to Debug, failures to Error.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter returns the adapter as an fxevent.Logger.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent implements fxevent.Logger.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("fx: start hook %s", hookName(e.FunctionName))
	case *fxevent.OnStopExecuting:
		Debugf("fx: stop hook %s", hookName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		logHook("start", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuted:
		logHook("stop", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		logWiring("supply", e.TypeName, e.Err)
	case *fxevent.Provided:
		logWiring("provide", strings.Join(e.OutputTypeNames, ", "), e.Err)
	case *fxevent.Decorated:
		logWiring("decorate", strings.Join(e.OutputTypeNames, ", "), e.Err)
	case *fxevent.Invoked:
		logWiring("invoke", hookName(e.FunctionName), e.Err)
	case *fxevent.Stopping:
		Infof("Signal %s received, stopping.", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("fx: stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("fx: start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("fx: rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("fx: start failed: %v", e.Err)
			return
		}
		Infof("Application started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("fx: custom logger failed: %v", e.Err)
		}
	}
}

func logHook(phase, fn, runtime string, err error) {
	if err != nil {
		Errorf("fx: %s hook %s failed: %v", phase, hookName(fn), err)
		return
	}
	Debugf("fx: %s hook %s done in %s", phase, hookName(fn), runtime)
}

func logWiring(kind, what string, err error) {
	if err != nil {
		Errorf("fx: %s %s failed: %v", kind, what, err)
		return
	}
	Debugf("fx: %s %s", kind, strings.TrimPrefix(what, "*"+modulePrefix))
}

// hookName drops the module prefix and closure suffixes (".func1") from an fx function name.
func hookName(fn string) string {
	fn = strings.TrimPrefix(fn, modulePrefix)
	if idx := strings.Index(fn, ".func"); idx != -1 {
		fn = fn[:idx]
	}
	return fn
}

// Module routes fx events through FxLoggerAdapter.
var Module = fx.WithLogger(NewFxLoggerAdapter)
