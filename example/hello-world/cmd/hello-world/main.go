package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"go.uber.org/fx"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// embeddedConfig holds resources/application.yaml.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Stopping...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	fxApp := fx.New(GetApplicationOptions(ctx, envFilePath, embeddedConfig)...)
	if err := fxApp.Err(); err != nil {
		logger.Fatalf("Application setup failed: %v", err)
	}

	if err := fxApp.Start(ctx); err != nil {
		logger.Fatalf("Application start failed: %v", err)
	}
	sig := <-fxApp.Wait()
	if err := fxApp.Stop(context.Background()); err != nil {
		logger.Errorf("Application stop failed: %v", err)
	}
	os.Exit(sig.ExitCode)
}
