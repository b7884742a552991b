// Package app wires the hello-world worklist: a tracker of people, the greeting runner and a dispatcher,
// all owned by one goroutine that drains the loop.
package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/worklist/example/hello-world/internal/step"
	"github.com/tigerroll/worklist/pkg/worklist/adapter/lock"
	sinkadapter "github.com/tigerroll/worklist/pkg/worklist/adapter/sink"
	usecase "github.com/tigerroll/worklist/pkg/worklist/core/application/usecase"
	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	"github.com/tigerroll/worklist/pkg/worklist/core/loop"
	"github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	"github.com/tigerroll/worklist/pkg/worklist/core/ports"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	"github.com/tigerroll/worklist/pkg/worklist/core/table"
	"github.com/tigerroll/worklist/pkg/worklist/core/tracker"
	"github.com/tigerroll/worklist/pkg/worklist/listener"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// People is the initial content of the table.
var People = []table.Item[step.Person]{
	{Columns: []string{"Alice", "en"}, Payload: step.Person{Name: "Alice", Language: "en"}},
	{Columns: []string{"Haruto", "ja"}, Payload: step.Person{Name: "Haruto", Language: "ja"}},
	{Columns: []string{"Jisoo", "ko"}, Payload: step.Person{Name: "Jisoo", Language: "ko"}},
	{Columns: []string{"(nobody)", "en"}, Payload: step.Person{Language: "en"}},
	{Columns: []string{"Camille", "fr"}, Payload: step.Person{Name: "Camille", Language: "fr"},
		Options: []table.RowOption{table.WithSelectable(false)}},
}

// Params are the dependencies of Application.
type Params struct {
	fx.In
	Config    *config.Config
	Sink      ports.ErrorSink
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
	Pool      *runner.Pool
	Work      runner.Work[step.Person]
	Listeners listener.RunListeners
}

// Application runs one dispatch round trip and prints the resulting table.
type Application struct {
	p Params
}

// NewApplication creates the Application.
func NewApplication(p Params) *Application {
	return &Application{p: p}
}

// Run executes the round trip, holding the instance lock when one is configured.
func (a *Application) Run(ctx context.Context) error {
	if path := a.p.Config.Worklist.Instance.LockFile; path != "" {
		return lock.Guard(path, a.p.Sink, func() error { return a.run(ctx) })
	}
	return a.run(ctx)
}

func (a *Application) run(ctx context.Context) error {
	cfg := a.p.Config.Worklist
	l := loop.New()
	defer l.Close()
	sink := sinkadapter.NewLoopSink(l, a.p.Sink)

	t := tracker.New[step.Person]([]string{"Name", "Language"}, l,
		tracker.WithStatusColumnLabel(cfg.Table.StatusColumnLabel),
		tracker.WithWaitingText(cfg.Table.WaitingText),
		tracker.WithDefaultDisableOnSuccess(cfg.Table.DisableOnSuccess),
		tracker.WithSelectionOptions(
			table.WithSelectColumnLabel(cfg.Table.SelectColumnLabel),
			table.WithDefaultChecked(true),
		),
	)
	if err := t.SetRows(People); err != nil {
		return err
	}

	r := runner.NewWorkerRunner[step.Person](a.p.Work, l,
		runner.WithName(step.WorkName),
		runner.WithSink(sink),
		runner.WithPool(a.p.Pool),
		runner.WithTracer(a.p.Tracer),
		runner.WithListeners(a.p.Listeners.Listeners...),
	)
	d, err := usecase.NewDispatcher(t, r, sink, a.p.Recorder, cfg.Runner.ErrorCode)
	if err != nil {
		return err
	}

	finished := false
	var runErr error
	run, err := d.DispatchChecked(ctx, usecase.DispatchOptions{
		OnFinished: func(err error) {
			finished = true
			runErr = err
		},
	})
	if err != nil {
		return err
	}
	logger.Infof("Dispatched %d row(s) as run %s.", run.BatchSize, run.ID)

	if err := l.RunUntil(ctx, func() bool { return finished }); err != nil {
		return err
	}
	// Flush sink reports posted by the last delivery.
	l.RunPending()

	printTable(t)
	return runErr
}

func printTable(t *tracker.WorkTracker[step.Person]) {
	logger.Infof("%s", strings.Join(t.Header(), " | "))
	for _, row := range t.Rows() {
		check := "[ ]"
		if row.EffectivelyChecked() {
			check = "[x]"
		}
		if !row.Selectable {
			check = " - "
		}
		logger.Infof("%s | %s | %s", check, strings.Join(row.Columns, " | "), fmt.Sprintf("%s (%s)", row.Status, row.State))
	}
}
