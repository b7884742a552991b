package main

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/worklist/example/hello-world/internal/app"
	"github.com/tigerroll/worklist/example/hello-world/internal/step"
	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	coremetrics "github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	inframetrics "github.com/tigerroll/worklist/pkg/worklist/infrastructure/metrics"
	"github.com/tigerroll/worklist/pkg/worklist/infrastructure/repository"
	"github.com/tigerroll/worklist/pkg/worklist/listener"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// GetApplicationOptions builds the fx options of the hello-world application.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		embeddedConfig,
		fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, coremetrics.Module)
	options = append(options, inframetrics.Module)
	options = append(options, runner.Module)
	options = append(options, repository.Module)
	options = append(options, listener.Module)
	options = append(options, step.Module)
	options = append(options, app.Module)

	return options
}
