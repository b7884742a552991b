package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/worklist/pkg/worklist/adapter/sink/console"
	"github.com/tigerroll/worklist/pkg/worklist/core/ports"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// startApplication runs the Application on its own goroutine after start and shuts the app down
// when it returns.
func startApplication(lc fx.Lifecycle, shutdowner fx.Shutdowner, application *Application, appCtx context.Context) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in application run: %v", r)
						exitCode = 1
					}
					logger.Infof("Requesting application shutdown.")
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				if err := application.Run(appCtx); err != nil {
					logger.Errorf("Application run failed: %v", err)
					exitCode = 1
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

// Module provides the console sink and the Application, and starts it.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		func() *console.Sink { return console.New() },
		fx.As(new(ports.ErrorSink)),
	)),
	fx.Provide(NewApplication),
	fx.Invoke(fx.Annotate(startApplication, fx.ParamTags("", "", "", `name:"appCtx"`))),
)
