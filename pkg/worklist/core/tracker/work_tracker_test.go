package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/loop"
	"github.com/tigerroll/worklist/pkg/worklist/core/table"
	"github.com/tigerroll/worklist/pkg/worklist/core/tracker"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

// threeRows builds R1(A), R2(B), R3(C) with R1 and R3 checked.
func threeRows(t *testing.T, exec loop.Executor, opts ...tracker.Option) *tracker.WorkTracker[string] {
	t.Helper()
	tr := tracker.New[string]([]string{"name"}, exec, opts...)
	for _, p := range []string{"A", "B", "C"} {
		_, err := tr.AddRow([]string{"R-" + p}, p)
		require.NoError(t, err)
	}
	require.NoError(t, tr.SetChecked(0, table.Checked))
	require.NoError(t, tr.SetChecked(2, table.Checked))
	return tr
}

func rowAt(t *testing.T, tr *tracker.WorkTracker[string], pos int) model.Row {
	t.Helper()
	r, ok := tr.Row(pos)
	require.True(t, ok)
	return r
}

func TestWorkTracker_HeaderAndWaitingText(t *testing.T) {
	tr := tracker.New[int]([]string{"file"}, loop.Immediate{},
		tracker.WithStatusColumnLabel("State"),
		tracker.WithSelectionOptions(table.WithSelectColumnLabel("Pick")),
	)
	assert.Equal(t, []string{"Pick", "file", "State"}, tr.Header())

	_, err := tr.AddRow([]string{"x"}, 1)
	require.NoError(t, err)
	status, ok := tr.Status(0)
	require.True(t, ok)
	assert.Equal(t, tracker.DefaultWaitingText, status)
	state, _ := tr.State(0)
	assert.Equal(t, model.RowStateIdle, state)
}

func TestWorkTracker_RoundTrip(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})

	batch, ch := tr.DispatchChecked()
	require.NotNil(t, ch)
	assert.Equal(t, []string{"A", "C"}, batch.Payloads())
	assert.Equal(t, 1, tr.PendingBatches())
	state, _ := tr.State(0)
	assert.Equal(t, model.RowStateDispatched, state)

	err := tr.ApplyResults([]model.ResultEntry{model.Success("ok"), model.Failure("fail")})
	require.NoError(t, err)

	r1, r2, r3 := rowAt(t, tr, 0), rowAt(t, tr, 1), rowAt(t, tr, 2)
	assert.Equal(t, model.RowStateSucceeded, r1.State)
	assert.False(t, r1.Checked)
	assert.True(t, r1.Selectable)
	assert.Equal(t, "ok", r1.Status)

	assert.Equal(t, model.RowStateIdle, r2.State)
	assert.Equal(t, tracker.DefaultWaitingText, r2.Status)

	assert.Equal(t, model.RowStateFailed, r3.State)
	assert.Equal(t, "fail", r3.Status)
	assert.True(t, r3.Checked, "failed rows stay eligible for re-dispatch")

	assert.True(t, ch.Released())
	assert.Equal(t, 0, tr.PendingBatches())

	removed := tr.DeleteSucceeded()
	assert.Equal(t, []int{0}, removed)
	assert.Equal(t, []string{"B", "C"}, tr.Payloads())
}

func TestWorkTracker_RowDeletedMidFlight(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})
	batch, _ := tr.DispatchChecked()

	require.NoError(t, tr.RemoveRow(2))
	_, err := tr.AddRow([]string{"R-D"}, "D")
	require.NoError(t, err)

	require.NoError(t, tr.ApplyBatchResults(batch, []model.ResultEntry{model.Success("ok"), model.Failure("fail")}))

	assert.Equal(t, "ok", rowAt(t, tr, 0).Status)
	d := rowAt(t, tr, 2)
	assert.Equal(t, tracker.DefaultWaitingText, d.Status, "the row now at R3's old position is untouched")
	assert.Equal(t, model.RowStateIdle, d.State)

	assert.Equal(t, []int{0}, tr.DeleteSucceeded())
	assert.Equal(t, []string{"B", "D"}, tr.Payloads())
}

func TestWorkTracker_InterimStatusFollowsStableID(t *testing.T) {
	l := loop.New()
	tr := threeRows(t, l)
	batch, ch := tr.DispatchChecked()
	ids := batch.IDs()

	require.NoError(t, tr.RemoveRow(0))
	ch.Send(ids[1], "50%")
	ch.Send(ids[0], "row was deleted")
	l.RunPending()

	assert.Equal(t, "50%", rowAt(t, tr, 1).Status)
	assert.Equal(t, tracker.DefaultWaitingText, rowAt(t, tr, 0).Status)

	require.NoError(t, tr.ApplyBatchResults(batch, []model.ResultEntry{model.Success("x"), model.Success("done")}))
	ch.Send(ids[1], "too late")
	l.RunPending()
	assert.Equal(t, "done", rowAt(t, tr, 1).Status)
}

func TestWorkTracker_ContractViolations(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})

	err := tr.ApplyResults([]model.ResultEntry{model.Success("ok")})
	assert.True(t, exception.IsContractViolation(err), "nothing dispatched yet")

	batch, _ := tr.DispatchChecked()
	err = tr.ApplyBatchResults(batch, []model.ResultEntry{model.Success("ok")})
	require.Error(t, err)
	assert.True(t, exception.IsContractViolation(err))
	assert.Equal(t, model.RowStateDispatched, rowAt(t, tr, 0).State, "a rejected apply changes nothing")
	assert.Equal(t, 1, tr.PendingBatches())

	results := []model.ResultEntry{model.Success("ok"), model.Success("ok")}
	require.NoError(t, tr.ApplyBatchResults(batch, results))
	err = tr.ApplyBatchResults(batch, results)
	assert.True(t, exception.IsContractViolation(err), "double apply")

	assert.True(t, exception.IsContractViolation(tr.ApplyBatchResults(nil, nil)))
	assert.True(t, exception.IsContractViolation(tr.AbandonBatch(batch)))
}

func TestWorkTracker_DisableOnSuccessPrecedence(t *testing.T) {
	tr := threeRows(t, loop.Immediate{}, tracker.WithDefaultDisableOnSuccess(true))
	tr.DispatchChecked()
	require.NoError(t, tr.ApplyResults([]model.ResultEntry{model.Success("ok"), model.Success("ok")}))
	assert.False(t, rowAt(t, tr, 0).Selectable)

	tr = threeRows(t, loop.Immediate{}, tracker.WithDefaultDisableOnSuccess(true))
	tr.DispatchChecked(tracker.WithDisableOnSuccess(false))
	require.NoError(t, tr.ApplyResults([]model.ResultEntry{model.Success("ok"), model.Success("ok")}))
	assert.True(t, rowAt(t, tr, 0).Selectable)

	tr = threeRows(t, loop.Immediate{})
	tr.DispatchChecked(tracker.WithDisableOnSuccess(false))
	require.NoError(t, tr.ApplyResults([]model.ResultEntry{model.Success("ok"), model.Failure("no")}, tracker.ApplyDisableOnSuccess(true)))
	assert.False(t, rowAt(t, tr, 0).Selectable)
	assert.True(t, rowAt(t, tr, 2).Selectable, "failures never disable")

	tr.SetDisableOnSuccess(true)
	assert.True(t, tr.DisableOnSuccess())
}

func TestWorkTracker_AbandonRestoresRows(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})
	first, _ := tr.DispatchChecked()
	require.NoError(t, tr.ApplyBatchResults(first, []model.ResultEntry{model.Failure("boom"), model.Success("ok")}))

	batch, ch := tr.DispatchChecked()
	require.Equal(t, 1, batch.Len())
	require.NoError(t, tr.AbandonBatch(batch))

	r1 := rowAt(t, tr, 0)
	assert.Equal(t, model.RowStateFailed, r1.State)
	assert.Equal(t, "boom", r1.Status)
	assert.True(t, ch.Released())
	assert.Equal(t, 0, tr.PendingBatches())
}

func TestWorkTracker_NewerBatchSupersedesRow(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})
	older, _ := tr.DispatchChecked()
	require.NoError(t, tr.SetChecked(2, table.Unchecked))
	newer, _ := tr.DispatchChecked()
	require.Equal(t, 1, newer.Len())

	require.NoError(t, tr.ApplyBatchResults(older, []model.ResultEntry{model.Success("old"), model.Success("old")}))
	assert.Equal(t, model.RowStateDispatched, rowAt(t, tr, 0).State, "R1 belongs to the newer batch")
	assert.Equal(t, "old", rowAt(t, tr, 2).Status)

	require.NoError(t, tr.ApplyResults([]model.ResultEntry{model.Failure("new")}))
	assert.Equal(t, "new", rowAt(t, tr, 0).Status)
	assert.Equal(t, model.RowStateFailed, rowAt(t, tr, 0).State)
}

func TestWorkTracker_AbandonNewerReturnsRowToOlder(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})
	older, _ := tr.DispatchChecked()
	newer, _ := tr.DispatchChecked()

	require.NoError(t, tr.AbandonBatch(newer))
	assert.Equal(t, model.RowStateDispatched, rowAt(t, tr, 0).State)

	require.NoError(t, tr.ApplyBatchResults(older, []model.ResultEntry{model.Success("a"), model.Success("c")}))
	assert.Equal(t, "a", rowAt(t, tr, 0).Status)
	assert.Equal(t, "c", rowAt(t, tr, 2).Status)
}

func TestWorkTracker_ClearAbandonsPending(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})
	batch, ch := tr.DispatchChecked()
	first := tr.IDs()[0]

	tr.Clear()
	assert.Equal(t, 0, tr.Len())
	assert.True(t, ch.Released())
	assert.Equal(t, 0, tr.PendingBatches())
	assert.True(t, exception.IsContractViolation(tr.ApplyBatchResults(batch, []model.ResultEntry{{}, {}})))

	id, err := tr.AddRow([]string{"new"}, "N")
	require.NoError(t, err)
	assert.Greater(t, uint64(id), uint64(first))
}

func TestWorkTracker_SetRows(t *testing.T) {
	tr := tracker.New[int]([]string{"n"}, loop.Immediate{}, tracker.WithWaitingText("queued"))
	_, _ = tr.AddRow([]string{"0"}, 0, table.WithCheckState(table.Checked))
	_, ch := tr.DispatchChecked()

	err := tr.SetRows([]table.Item[int]{{Columns: []string{"1"}, Payload: 1}, {Columns: []string{"2"}, Payload: 2}})
	require.NoError(t, err)
	assert.True(t, ch.Released())
	assert.Equal(t, []int{1, 2}, tr.Payloads())
	status, _ := tr.Status(1)
	assert.Equal(t, "queued", status)
}

func TestWorkTracker_EmptyDispatch(t *testing.T) {
	tr := tracker.New[int](nil, loop.Immediate{})
	batch, _ := tr.DispatchChecked()
	assert.Equal(t, 0, batch.Len())
	assert.NoError(t, tr.ApplyResults(nil))
}

func TestWorkTracker_IsPending(t *testing.T) {
	tr := threeRows(t, loop.Immediate{})
	batch, _ := tr.DispatchChecked()
	assert.True(t, tr.IsPending(batch))
	require.NoError(t, tr.AbandonBatch(batch))
	assert.False(t, tr.IsPending(batch))
	assert.False(t, tr.IsPending(nil))
}

func TestWorkTracker_StatusWaitsForOwnerLoop(t *testing.T) {
	l := loop.New()
	tr := threeRows(t, l)
	assert.Same(t, l, tr.Executor())
	batch, ch := tr.DispatchChecked()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch.Send(batch.IDs()[0], "from worker")
	}()
	<-done

	status, _ := tr.Status(0)
	assert.NotEqual(t, "from worker", status, "status changed before the owner drained its loop")
	assert.Equal(t, 1, l.Pending())

	l.RunPending()
	status, _ = tr.Status(0)
	assert.Equal(t, "from worker", status)
}

func TestWorkTracker_RequiresExecutor(t *testing.T) {
	assert.Panics(t, func() { tracker.New[int]([]string{"n"}, nil) })
}
