package logger_test

import (
	"bytes"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxevent"

	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		logger.SetLogLevel("INFO")
	})
	return buf
}

func TestSetLogLevel_Filters(t *testing.T) {
	buf := captureLog(t)

	logger.SetLogLevel("warn")
	assert.Equal(t, logger.LevelWarn, logger.GetLogLevel())

	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)
	logger.Errorf("shown %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "[WARN] shown 2")
	assert.Contains(t, out, "[ERROR] shown 3")
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	captureLog(t)

	logger.SetLogLevel("DEBUG")
	assert.Equal(t, logger.LevelDebug, logger.GetLogLevel())

	logger.SetLogLevel("verbose")
	assert.Equal(t, logger.LevelInfo, logger.GetLogLevel())
}

func TestFxLoggerAdapter_StartedEvent(t *testing.T) {
	buf := captureLog(t)

	adapter := logger.NewFxLoggerAdapter()
	adapter.LogEvent(&fxevent.Started{})

	assert.Contains(t, buf.String(), "Application started.")
}

func TestFxLoggerAdapter_HookFailure(t *testing.T) {
	buf := captureLog(t)

	adapter := logger.NewFxLoggerAdapter()
	adapter.LogEvent(&fxevent.OnStartExecuted{
		FunctionName: "github.com/tigerroll/worklist/pkg/worklist/infrastructure/metrics.DecorateTracer.func1",
		Err:          errors.New("exporter unreachable"),
	})

	out := buf.String()
	assert.Contains(t, out, "[ERROR] fx: start hook pkg/worklist/infrastructure/metrics.DecorateTracer failed: exporter unreachable")
}
