package runner_test

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
	"github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

type sinkCall struct {
	kind, title, text, detail string
}

type fakeSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *fakeSink) record(c sinkCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *fakeSink) Warn(title, text, detail string)  { s.record(sinkCall{"warn", title, text, detail}) }
func (s *fakeSink) Error(title, text, detail string) { s.record(sinkCall{"error", title, text, detail}) }
func (s *fakeSink) Fatal(title, text, detail string, exitCode int) {
	s.record(sinkCall{"fatal", title, text, detail})
}

func (s *fakeSink) Calls() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

func newBatch(payloads ...string) *model.WorkBatch[string] {
	entries := make([]model.BatchEntry[string], len(payloads))
	for i, p := range payloads {
		entries[i] = model.BatchEntry[string]{ID: model.StableID(i + 1), Payload: p}
	}
	return model.NewWorkBatch(entries)
}

func drain(t *testing.T, l *loop.Loop, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.RunUntil(ctx, done))
}

func echo(ctx context.Context, batch *model.WorkBatch[string], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
	out := make([]model.ResultEntry, 0, batch.Len())
	for _, p := range batch.Payloads() {
		out = append(out, model.Success(p))
	}
	return out, nil
}

func TestWorkerRunner_DeliversOnOwnerLoop(t *testing.T) {
	l := loop.New()
	r := runner.NewWorkerRunner[string](runner.Func[string](echo), l, runner.WithName("echo"))
	batch := newBatch("a", "b")

	var got [][]model.ResultEntry
	run := r.Start(context.Background(), batch, channel.NewStatusChannel(l), func(res []model.ResultEntry) {
		got = append(got, res)
	})
	assert.Equal(t, "echo", run.RunnerName)
	assert.Equal(t, batch.ID(), run.BatchID)
	assert.Equal(t, model.RunStatusStarted, run.Status)

	drain(t, l, func() bool { return r.Active() == 0 })
	require.Len(t, got, 1)
	assert.Equal(t, []model.ResultEntry{model.Success("a"), model.Success("b")}, got[0])
}

func TestWorkerRunner_StatusUpdatesPrecedeCompletion(t *testing.T) {
	l := loop.New()
	ch := channel.NewStatusChannel(l)
	var events []string
	ch.Register(1, func(s string) { events = append(events, s) })

	work := runner.Func[string](func(ctx context.Context, batch *model.WorkBatch[string], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
		for _, s := range []string{"10%", "50%", "90%"} {
			ch.Send(1, s)
		}
		return []model.ResultEntry{model.Success("ok")}, nil
	})
	r := runner.NewWorkerRunner[string](work, l)
	r.Start(context.Background(), newBatch("x"), ch, func([]model.ResultEntry) { events = append(events, "done") })

	drain(t, l, func() bool { return r.Active() == 0 })
	assert.Equal(t, []string{"10%", "50%", "90%", "done"}, events)
}

func TestWorkerRunner_LatestStartGovernsDelivery(t *testing.T) {
	l := loop.New()
	gates := map[string]chan struct{}{}
	first, second := newBatch("first"), newBatch("second")
	gates[first.ID()] = make(chan struct{})
	gates[second.ID()] = make(chan struct{})

	work := runner.Func[string](func(ctx context.Context, batch *model.WorkBatch[string], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
		<-gates[batch.ID()]
		return echo(ctx, batch, ch)
	})
	r := runner.NewWorkerRunner[string](work, l, runner.WithPool(runner.NewPool(4)))

	var delivered []string
	onDone := func(res []model.ResultEntry) { delivered = append(delivered, res[0].Text) }
	r.Start(context.Background(), first, channel.NewStatusChannel(l), onDone)
	r.Start(context.Background(), second, channel.NewStatusChannel(l), onDone)
	assert.Equal(t, 2, r.Active())

	close(gates[first.ID()])
	close(gates[second.ID()])
	drain(t, l, func() bool { return r.Active() == 0 })

	assert.Equal(t, []string{"second"}, delivered)
}

func TestWorkerRunner_FailureWithErrorCode(t *testing.T) {
	l := loop.New()
	sink := &fakeSink{}
	work := runner.Func[string](func(context.Context, *model.WorkBatch[string], *channel.StatusChannel) ([]model.ResultEntry, error) {
		return nil, errors.New("disk full")
	})
	r := runner.NewWorkerRunner[string](work, l, runner.WithSink(sink))

	doneCalls := 0
	var codes []int
	run := r.Start(context.Background(), newBatch("a"), channel.NewStatusChannel(l),
		func([]model.ResultEntry) { doneCalls++ },
		runner.WithErrorCode(3, func(code int) { codes = append(codes, code) }))
	require.NotNil(t, run.ErrorCode)
	assert.Equal(t, 3, *run.ErrorCode)

	drain(t, l, func() bool { return r.Active() == 0 })

	assert.Equal(t, 0, doneCalls)
	assert.Equal(t, []int{3}, codes)
	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "warn", calls[0].kind)
	assert.Equal(t, runner.FailureText, calls[0].text)
	assert.Contains(t, calls[0].detail, "disk full")
}

func TestWorkerRunner_PanicIsIntercepted(t *testing.T) {
	l := loop.New()
	sink := &fakeSink{}
	work := runner.Func[string](func(context.Context, *model.WorkBatch[string], *channel.StatusChannel) ([]model.ResultEntry, error) {
		panic("boom")
	})
	r := runner.NewWorkerRunner[string](work, l, runner.WithSink(sink))

	doneCalls := 0
	r.Start(context.Background(), newBatch("a"), channel.NewStatusChannel(l), func([]model.ResultEntry) { doneCalls++ })
	drain(t, l, func() bool { return r.Active() == 0 })

	assert.Equal(t, 0, doneCalls)
	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].detail, "panicked: boom")
}

func TestWorkerRunner_SupersededFailureStillWarns(t *testing.T) {
	l := loop.New()
	sink := &fakeSink{}
	gate := make(chan struct{})
	failing := newBatch("fail")
	work := runner.Func[string](func(ctx context.Context, batch *model.WorkBatch[string], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
		if batch.ID() == failing.ID() {
			<-gate
			return nil, errors.New("late failure")
		}
		return echo(ctx, batch, ch)
	})
	r := runner.NewWorkerRunner[string](work, l, runner.WithSink(sink), runner.WithPool(runner.NewPool(4)))

	var codes []int
	var delivered []string
	r.Start(context.Background(), failing, channel.NewStatusChannel(l), nil,
		runner.WithErrorCode(9, func(code int) { codes = append(codes, code) }))
	r.Start(context.Background(), newBatch("ok"), channel.NewStatusChannel(l),
		func(res []model.ResultEntry) { delivered = append(delivered, res[0].Text) })

	drain(t, l, func() bool { return len(delivered) == 1 })
	close(gate)
	drain(t, l, func() bool { return r.Active() == 0 })

	assert.Empty(t, codes)
	assert.Equal(t, []string{"ok"}, delivered)
	assert.Len(t, sink.Calls(), 1)
}

type recordingListener struct {
	mu     sync.Mutex
	before []model.RunExecution
	after  []model.RunExecution
}

func (l *recordingListener) BeforeRun(ctx context.Context, run *model.RunExecution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.before = append(l.before, *run.Copy())
}

func (l *recordingListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.after = append(l.after, *run.Copy())
}

func TestWorkerRunner_Listeners(t *testing.T) {
	l := loop.New()
	rec := &recordingListener{}
	r := runner.NewWorkerRunner[string](runner.Func[string](echo), l, runner.WithListeners(rec))

	r.Start(context.Background(), newBatch("a"), channel.NewStatusChannel(l), func([]model.ResultEntry) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		assert.Len(t, rec.after, 1, "AfterRun runs before onDone")
	})
	drain(t, l, func() bool { return r.Active() == 0 })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.before, 1)
	require.Len(t, rec.after, 1)
	assert.Equal(t, model.RunStatusStarted, rec.before[0].Status)
	assert.Equal(t, model.RunStatusCompleted, rec.after[0].Status)
	assert.Equal(t, model.DeliveryDelivered, rec.after[0].Delivery)
	assert.NotNil(t, rec.after[0].EndTime)
}

type panickingListener struct{}

func (panickingListener) BeforeRun(ctx context.Context, run *model.RunExecution) { panic("listener broke") }
func (panickingListener) AfterRun(ctx context.Context, run *model.RunExecution)  {}

type panickingTracer struct {
	metrics.NoOpTracer
}

func (panickingTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	panic("tracer broke")
}

func TestWorkerRunner_InstrumentationPanicFailsRun(t *testing.T) {
	cases := map[string]struct {
		opt  runner.Option
		text string
	}{
		"listener": {runner.WithListeners(panickingListener{}), "listener broke"},
		"tracer":   {runner.WithTracer(&panickingTracer{}), "tracer broke"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			l := loop.New()
			sink := &fakeSink{}
			executed := false
			work := runner.Func[string](func(context.Context, *model.WorkBatch[string], *channel.StatusChannel) ([]model.ResultEntry, error) {
				executed = true
				return nil, nil
			})
			r := runner.NewWorkerRunner[string](work, l, runner.WithSink(sink), tc.opt)

			var codes []int
			run := r.Start(context.Background(), newBatch("a"), channel.NewStatusChannel(l), nil,
				runner.WithErrorCode(4, func(code int) { codes = append(codes, code) }))
			drain(t, l, func() bool { return r.Active() == 0 })

			require.NotNil(t, run)
			assert.False(t, executed)
			assert.Equal(t, []int{4}, codes)
			calls := sink.Calls()
			require.Len(t, calls, 1)
			assert.Contains(t, calls[0].detail, tc.text)
		})
	}
}

func TestWorkerRunner_ClosedExecutorDiscards(t *testing.T) {
	l := loop.New()
	l.Close()
	rec := &recordingListener{}
	r := runner.NewWorkerRunner[string](runner.Func[string](echo), l, runner.WithListeners(rec))

	r.Start(context.Background(), newBatch("a"), channel.NewStatusChannel(l), func([]model.ResultEntry) {
		t.Error("must not be delivered")
	})
	require.Eventually(t, func() bool { return r.Active() == 0 }, 5*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.after, 1)
	assert.Equal(t, model.DeliveryDiscarded, rec.after[0].Delivery)
}

func TestWorkerRunner_CancelledContextFailsRun(t *testing.T) {
	l := loop.New()
	sink := &fakeSink{}
	pool := runner.NewPool(1)
	require.True(t, pool.TryAcquire())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := runner.NewWorkerRunner[string](runner.Func[string](echo), l, runner.WithPool(pool), runner.WithSink(sink))
	var codes []int
	r.Start(ctx, newBatch("a"), channel.NewStatusChannel(l), nil, runner.WithErrorCode(2, func(c int) { codes = append(codes, c) }))
	drain(t, l, func() bool { return r.Active() == 0 })

	assert.Equal(t, []int{2}, codes)
	require.Len(t, sink.Calls(), 1)
	assert.Contains(t, sink.Calls()[0].detail, "no worker slot")
	pool.Release()
}

func TestAwait(t *testing.T) {
	l := loop.New()
	async := runner.AsyncFunc[string](func(ctx context.Context, batch *model.WorkBatch[string], ch *channel.StatusChannel) <-chan runner.Outcome {
		out := make(chan runner.Outcome, 1)
		go func() {
			res, err := echo(ctx, batch, ch)
			out <- runner.Outcome{Results: res, Err: err}
		}()
		return out
	})
	r := runner.NewWorkerRunner[string](runner.Await[string](async), l)

	var got []model.ResultEntry
	r.Start(context.Background(), newBatch("x"), channel.NewStatusChannel(l), func(res []model.ResultEntry) { got = res })
	drain(t, l, func() bool { return r.Active() == 0 })
	assert.Equal(t, []model.ResultEntry{model.Success("x")}, got)
}

func TestAwait_ClosedWithoutOutcome(t *testing.T) {
	async := runner.AsyncFunc[string](func(context.Context, *model.WorkBatch[string], *channel.StatusChannel) <-chan runner.Outcome {
		out := make(chan runner.Outcome)
		close(out)
		return out
	})
	_, err := runner.Await[string](async).Execute(context.Background(), newBatch("x"), nil)
	assert.True(t, exception.IsWorkerFailure(err))
}
