package listener_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/worklist/pkg/worklist/core/channel"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/loop"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	"github.com/tigerroll/worklist/pkg/worklist/infrastructure/repository/inmemory"
	"github.com/tigerroll/worklist/pkg/worklist/listener"
	"github.com/tigerroll/worklist/pkg/worklist/listener/history"
	"github.com/tigerroll/worklist/pkg/worklist/listener/logging"
	"github.com/tigerroll/worklist/pkg/worklist/listener/metrics"
)

type countingRecorder struct {
	mu     sync.Mutex
	starts int
	ends   []model.RunStatus
}

func (c *countingRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
}

func (c *countingRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ends = append(c.ends, run.Status)
}

func (c *countingRecorder) RecordDispatch(ctx context.Context, runnerName string, size int) {}

func (c *countingRecorder) RecordResults(ctx context.Context, runnerName string, succeeded, failed int) {
}

func (c *countingRecorder) RecordDuration(ctx context.Context, name string, d time.Duration, tags map[string]string) {
}

func oneItemBatch() *model.WorkBatch[string] {
	return model.NewWorkBatch([]model.BatchEntry[string]{{ID: 1, Payload: "a"}})
}

func TestListeners_ObserveRunThroughRunner(t *testing.T) {
	l := loop.New()
	repo := inmemory.NewInMemoryRunRepository()
	recorder := &countingRecorder{}
	signaler := listener.NewRunCompletionSignaler()

	work := runner.Func[string](func(ctx context.Context, batch *model.WorkBatch[string], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
		return nil, errors.New("boom")
	})
	r := runner.NewWorkerRunner[string](work, l,
		runner.WithName("history"),
		runner.WithListeners(
			logging.NewLoggingRunListener(),
			metrics.NewMetricsRunListener(recorder),
			history.NewHistoryRunListener(repo),
			signaler,
		))

	var gotCode int
	started := r.Start(context.Background(), oneItemBatch(), channel.NewStatusChannel(l), nil,
		runner.WithErrorCode(7, func(code int) { gotCode = code }))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.RunUntil(ctx, func() bool {
		select {
		case <-signaler.Done:
			return true
		default:
			return false
		}
	}))
	assert.Equal(t, 7, gotCode)

	stored, err := repo.FindRunByID(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, stored.Status)
	assert.Equal(t, model.DeliveryDelivered, stored.Delivery)
	assert.Contains(t, stored.Failure, "boom")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, 1, recorder.starts)
	assert.Equal(t, []model.RunStatus{model.RunStatusFailed}, recorder.ends)
}

func TestRunCompletionSignaler_IgnoresDiscardedRuns(t *testing.T) {
	signaler := listener.NewRunCompletionSignaler()
	run := model.NewRunExecution("worker", "b1", 1)
	run.MarkAsCompleted()

	run.Delivery = model.DeliveryDiscarded
	signaler.AfterRun(context.Background(), run)
	select {
	case <-signaler.Done:
		t.Fatal("discarded run must not signal")
	default:
	}

	run.Delivery = model.DeliveryDelivered
	signaler.AfterRun(context.Background(), run)
	signaler.AfterRun(context.Background(), run)
	_, open := <-signaler.Done
	assert.False(t, open)
}

type failingRepo struct {
	*inmemory.InMemoryRunRepository
}

func (failingRepo) SaveRun(ctx context.Context, run *model.RunExecution) error {
	return errors.New("disk full")
}

func TestHistoryRunListener_RepositoryErrorsAreSwallowed(t *testing.T) {
	repo := failingRepo{inmemory.NewInMemoryRunRepository()}
	l := history.NewHistoryRunListener(repo)
	run := model.NewRunExecution("worker", "b1", 1)

	assert.NotPanics(t, func() {
		l.BeforeRun(context.Background(), run)
		run.MarkAsCompleted()
		l.AfterRun(context.Background(), run)
	})
	_, err := repo.FindRunByID(context.Background(), run.ID)
	assert.Error(t, err)
}
