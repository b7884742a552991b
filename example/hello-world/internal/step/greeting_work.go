// Package step provides the greeting work of the hello-world example.
package step

import (
	"context"
	"fmt"
	"strings"
	"time"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	configbinder "github.com/tigerroll/worklist/pkg/worklist/support/util/configbinder"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// Person is the payload of one row.
type Person struct {
	Name     string
	Language string
}

// GreetingWorkConfig is bound from works.greeting.properties.
type GreetingWorkConfig struct {
	Greeting    string `yaml:"greeting"`     // Fallback greeting for unknown languages.
	DelayMillis int    `yaml:"delay_millis"` // Simulated work per row.
}

var greetings = map[string]string{
	"en": "Hello",
	"ja": "Konnichiwa",
	"ko": "Annyeonghaseyo",
	"fr": "Bonjour",
}

// GreetingWork greets every person of a batch, reporting interim status per row.
type GreetingWork struct {
	config GreetingWorkConfig
}

// NewGreetingWork binds the work properties.
func NewGreetingWork(properties map[string]string) (*GreetingWork, error) {
	cfg := GreetingWorkConfig{Greeting: "Hello"}
	if err := configbinder.BindProperties(properties, &cfg); err != nil {
		return nil, err
	}
	if cfg.DelayMillis < 0 {
		return nil, exception.NewWorklistErrorf(exception.KindConfig, "greeting_work", "delay_millis must not be negative, got %d", cfg.DelayMillis)
	}
	return &GreetingWork{config: cfg}, nil
}

// Greet handles one person. A blank name is a failed row, not a failed run.
func (w *GreetingWork) Greet(ctx context.Context, p Person, report func(string)) (model.ResultEntry, error) {
	if strings.TrimSpace(p.Name) == "" {
		return model.Failure("no name"), nil
	}
	report("greeting")

	if w.config.DelayMillis > 0 {
		select {
		case <-ctx.Done():
			return model.ResultEntry{}, ctx.Err()
		case <-time.After(time.Duration(w.config.DelayMillis) * time.Millisecond):
		}
	}

	greeting, ok := greetings[p.Language]
	if !ok {
		greeting = w.config.Greeting
	}
	logger.Debugf("GreetingWork: greeting %s in '%s'.", p.Name, p.Language)
	return model.Success(fmt.Sprintf("%s, %s!", greeting, p.Name)), nil
}

// Work runs Greet for every row with the given per-item concurrency.
func (w *GreetingWork) Work(workers int) runner.Work[Person] {
	return runner.PerItem[Person](w.Greet, workers)
}
