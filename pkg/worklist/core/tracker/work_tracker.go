// Package tracker implements the work state machine on top of a payload table:
// dispatching checked rows as a batch, streaming interim status through a StatusChannel,
// and applying the batch results back onto the rows that are still alive.
package tracker

import (
	"github.com/tigerroll/worklist/pkg/worklist/core/channel"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/loop"
	"github.com/tigerroll/worklist/pkg/worklist/core/table"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

const module = "work_tracker"

const (
	// DefaultWaitingText is the status of a row that has not produced a result yet.
	DefaultWaitingText = "waiting"
	// DefaultStatusColumnLabel is the header label of the status column.
	DefaultStatusColumnLabel = "Status"
)

type settings struct {
	statusLabel      string
	waitingText      string
	disableOnSuccess bool
	selection        []table.SelectionOption
}

// Option configures a WorkTracker.
type Option func(*settings)

// WithStatusColumnLabel sets the header label of the status column.
func WithStatusColumnLabel(label string) Option {
	return func(s *settings) { s.statusLabel = label }
}

// WithWaitingText sets the initial status text of new rows.
func WithWaitingText(text string) Option {
	return func(s *settings) { s.waitingText = text }
}

// WithDefaultDisableOnSuccess sets the table-wide disable-on-success policy.
func WithDefaultDisableOnSuccess(disable bool) Option {
	return func(s *settings) { s.disableOnSuccess = disable }
}

// WithSelectionOptions passes options to the underlying selection table.
func WithSelectionOptions(opts ...table.SelectionOption) Option {
	return func(s *settings) { s.selection = append(s.selection, opts...) }
}

type dispatchSettings struct {
	disableOnSuccess *bool
}

// DispatchOption customises one DispatchChecked call.
type DispatchOption func(*dispatchSettings)

// WithDisableOnSuccess overrides the table policy for the batch being dispatched.
func WithDisableOnSuccess(disable bool) DispatchOption {
	return func(s *dispatchSettings) { s.disableOnSuccess = &disable }
}

type applySettings struct {
	disableOnSuccess *bool
}

// ApplyOption customises one result application.
type ApplyOption func(*applySettings)

// ApplyDisableOnSuccess overrides both the table and the dispatch policy for this application.
func ApplyDisableOnSuccess(disable bool) ApplyOption {
	return func(s *applySettings) { s.disableOnSuccess = &disable }
}

// pendingEntry remembers what a row looked like before it was dispatched.
type pendingEntry struct {
	id         model.StableID
	prevState  model.RowState
	prevStatus string
	prevOwner  string
}

type pendingBatch struct {
	id               string
	entries          []pendingEntry
	channel          *channel.StatusChannel
	disableOnSuccess *bool
}

// WorkTracker adds per-row work state and status text to a PayloadTable.
//
// Rows move Idle -> Dispatched -> Succeeded|Failed; DeleteSucceeded purges succeeded rows.
// Every lookup from a batch back to a row goes through its StableID, so rows may be inserted,
// deleted or cleared while a batch is in flight. Like the table, a WorkTracker belongs to one goroutine.
type WorkTracker[P any] struct {
	*table.PayloadTable[P]

	statusLabel      string
	waitingText      string
	disableOnSuccess bool
	exec             loop.Executor

	pending map[string]*pendingBatch
	order   []string
	// owner maps an in-flight row to the batch that dispatched it last.
	owner map[model.StableID]string
}

// New creates an empty tracker with the given domain header. exec is the executor drained by the
// goroutine that owns the tracker; every StatusChannel delivery runs there. Pass loop.Immediate{}
// only when the owner itself calls Send. New panics if exec is nil.
func New[P any](header []string, exec loop.Executor, opts ...Option) *WorkTracker[P] {
	if exec == nil {
		panic(exception.NewContractViolation(module, "tracker requires an executor"))
	}
	s := settings{
		statusLabel: DefaultStatusColumnLabel,
		waitingText: DefaultWaitingText,
	}
	for _, opt := range opts {
		opt(&s)
	}

	t := &WorkTracker[P]{
		PayloadTable:     table.NewPayloadTable[P](header, s.selection...),
		statusLabel:      s.statusLabel,
		waitingText:      s.waitingText,
		disableOnSuccess: s.disableOnSuccess,
		exec:             exec,
		pending:          make(map[string]*pendingBatch),
		owner:            make(map[model.StableID]string),
	}
	t.Subscribe(t.onTableEvent)
	return t
}

// Executor returns the executor status deliveries run on.
func (t *WorkTracker[P]) Executor() loop.Executor {
	return t.exec
}

// onTableEvent drops the in-flight bookkeeping of removed rows.
func (t *WorkTracker[P]) onTableEvent(e table.Event) {
	if e.Kind != table.EventRemoved {
		return
	}
	batchID, ok := t.owner[e.ID]
	if !ok {
		return
	}
	delete(t.owner, e.ID)
	if pb, ok := t.pending[batchID]; ok {
		pb.channel.Unregister(e.ID)
	}
	logger.Debugf("WorkTracker: row %s removed while batch %s is in flight.", e.ID, batchID)
}

// Header returns the selection column label, the domain labels and the status column label.
func (t *WorkTracker[P]) Header() []string {
	return append(t.PayloadTable.Header(), t.statusLabel)
}

// WaitingText returns the initial status text of new rows.
func (t *WorkTracker[P]) WaitingText() string {
	return t.waitingText
}

// DisableOnSuccess returns the table-wide disable-on-success policy.
func (t *WorkTracker[P]) DisableOnSuccess() bool {
	return t.disableOnSuccess
}

// SetDisableOnSuccess changes the table-wide disable-on-success policy.
func (t *WorkTracker[P]) SetDisableOnSuccess(disable bool) {
	t.disableOnSuccess = disable
}

// AddRow appends an Idle row with the waiting status text.
func (t *WorkTracker[P]) AddRow(columns []string, payload P, opts ...table.RowOption) (model.StableID, error) {
	return t.PayloadTable.AddRow(columns, payload, t.withWaiting(opts)...)
}

// SetRows replaces the content. Pending batches are abandoned first.
func (t *WorkTracker[P]) SetRows(items []table.Item[P]) error {
	t.abandonAll()
	prepared := make([]table.Item[P], len(items))
	for i, it := range items {
		it.Options = t.withWaiting(it.Options)
		prepared[i] = it
	}
	return t.PayloadTable.SetRows(prepared)
}

func (t *WorkTracker[P]) withWaiting(opts []table.RowOption) []table.RowOption {
	return append([]table.RowOption{table.WithStatus(t.waitingText)}, opts...)
}

// Clear removes every row and abandons every pending batch.
func (t *WorkTracker[P]) Clear() {
	t.abandonAll()
	t.PayloadTable.Clear()
}

func (t *WorkTracker[P]) abandonAll() {
	for _, id := range t.order {
		if pb, ok := t.pending[id]; ok {
			pb.channel.Clear()
		}
	}
	if len(t.order) > 0 {
		logger.Debugf("WorkTracker: abandoned %d pending batch(es).", len(t.order))
	}
	t.pending = make(map[string]*pendingBatch)
	t.order = nil
	t.owner = make(map[model.StableID]string)
}

// State returns the work state of the row at pos.
func (t *WorkTracker[P]) State(pos int) (model.RowState, bool) {
	r, ok := t.Row(pos)
	if !ok {
		return "", false
	}
	return r.State, true
}

// Status returns the status text of the row at pos.
func (t *WorkTracker[P]) Status(pos int) (string, bool) {
	r, ok := t.Row(pos)
	if !ok {
		return "", false
	}
	return r.Status, true
}

// SetStatus overwrites the status text of the row with the given ID.
func (t *WorkTracker[P]) SetStatus(id model.StableID, text string) bool {
	return t.Update(id, func(r *model.Row) { r.Status = text })
}

// IsPending reports whether batch was dispatched by this tracker and still waits for results.
func (t *WorkTracker[P]) IsPending(batch *model.WorkBatch[P]) bool {
	if batch == nil {
		return false
	}
	_, ok := t.pending[batch.ID()]
	return ok
}

// PendingBatches returns the number of dispatched batches whose results were not applied yet.
func (t *WorkTracker[P]) PendingBatches() int {
	return len(t.order)
}

// DispatchChecked snapshots the effectively checked rows, in positional order, into a batch and
// moves them to Dispatched. The returned channel routes interim status text to those rows by
// StableID; it is released when the batch's results are applied or the batch is abandoned.
func (t *WorkTracker[P]) DispatchChecked(opts ...DispatchOption) (*model.WorkBatch[P], *channel.StatusChannel) {
	var ds dispatchSettings
	for _, opt := range opts {
		opt(&ds)
	}

	ids := t.CheckedIDs()
	entries := make([]model.BatchEntry[P], 0, len(ids))
	for _, id := range ids {
		p, _ := t.PayloadByID(id)
		entries = append(entries, model.BatchEntry[P]{ID: id, Payload: p})
	}
	batch := model.NewWorkBatch(entries)
	ch := channel.NewStatusChannel(t.exec)

	pb := &pendingBatch{
		id:               batch.ID(),
		entries:          make([]pendingEntry, 0, len(ids)),
		channel:          ch,
		disableOnSuccess: ds.disableOnSuccess,
	}
	for _, id := range ids {
		t.Update(id, func(r *model.Row) {
			pb.entries = append(pb.entries, pendingEntry{
				id:         id,
				prevState:  r.State,
				prevStatus: r.Status,
				prevOwner:  t.owner[id],
			})
			if err := r.TransitionTo(model.RowStateDispatched); err != nil {
				logger.Warnf("WorkTracker: %v", err)
			}
		})
		t.owner[id] = batch.ID()
		ch.Register(id, t.statusReceiver(batch.ID(), id))
	}
	t.pending[batch.ID()] = pb
	t.order = append(t.order, batch.ID())

	logger.Debugf("WorkTracker: dispatched batch %s with %d row(s).", batch.ID(), batch.Len())
	return batch, ch
}

// statusReceiver updates the row's status text while batchID still owns the row.
func (t *WorkTracker[P]) statusReceiver(batchID string, id model.StableID) func(string) {
	return func(text string) {
		if t.owner[id] != batchID {
			return
		}
		t.SetStatus(id, text)
	}
}

// ApplyResults applies results to the most recently dispatched pending batch.
func (t *WorkTracker[P]) ApplyResults(results []model.ResultEntry, opts ...ApplyOption) error {
	if len(t.order) == 0 {
		return exception.NewContractViolation(module, "no dispatched batch is waiting for results")
	}
	return t.applyPending(t.pending[t.order[len(t.order)-1]], results, opts)
}

// ApplyBatchResults applies results, one per batch entry and in the same order, to the rows of batch.
// Rows deleted since dispatch, or re-dispatched by a newer batch, are skipped.
// A results sequence of the wrong length, or a batch that was already applied or abandoned,
// is a contract violation and leaves the rows untouched.
func (t *WorkTracker[P]) ApplyBatchResults(batch *model.WorkBatch[P], results []model.ResultEntry, opts ...ApplyOption) error {
	pb, err := t.lookup(batch)
	if err != nil {
		return err
	}
	return t.applyPending(pb, results, opts)
}

func (t *WorkTracker[P]) lookup(batch *model.WorkBatch[P]) (*pendingBatch, error) {
	if batch == nil {
		return nil, exception.NewContractViolation(module, "batch is nil")
	}
	pb, ok := t.pending[batch.ID()]
	if !ok {
		return nil, exception.NewContractViolation(module, "batch %s is not pending (already applied or abandoned)", batch.ID())
	}
	return pb, nil
}

func (t *WorkTracker[P]) applyPending(pb *pendingBatch, results []model.ResultEntry, opts []ApplyOption) error {
	if len(results) != len(pb.entries) {
		return exception.NewContractViolation(module, "batch %s has %d entries, got %d results", pb.id, len(pb.entries), len(results))
	}
	var as applySettings
	for _, opt := range opts {
		opt(&as)
	}
	disable := t.disableOnSuccess
	if pb.disableOnSuccess != nil {
		disable = *pb.disableOnSuccess
	}
	if as.disableOnSuccess != nil {
		disable = *as.disableOnSuccess
	}

	applied := 0
	for i, e := range pb.entries {
		if t.owner[e.id] != pb.id {
			logger.Debugf("WorkTracker: result for row %s of batch %s skipped.", e.id, pb.id)
			continue
		}
		res := results[i]
		t.Update(e.id, func(r *model.Row) {
			next := model.RowStateFailed
			if res.Succeeded {
				next = model.RowStateSucceeded
			}
			if err := r.TransitionTo(next); err != nil {
				logger.Warnf("WorkTracker: %v", err)
				return
			}
			r.Status = res.Text
			if res.Succeeded {
				r.Checked = false
				if disable {
					r.Selectable = false
				}
			}
		})
		delete(t.owner, e.id)
		applied++
	}
	t.release(pb)
	logger.Debugf("WorkTracker: applied %d of %d result(s) of batch %s.", applied, len(results), pb.id)
	return nil
}

// AbandonBatch forgets batch without results: each still-owned row gets back the state and
// status text it had before dispatch, and the batch's channel is released.
func (t *WorkTracker[P]) AbandonBatch(batch *model.WorkBatch[P]) error {
	pb, err := t.lookup(batch)
	if err != nil {
		return err
	}
	for _, e := range pb.entries {
		if t.owner[e.id] != pb.id {
			continue
		}
		prevOwner := ""
		if _, alive := t.pending[e.prevOwner]; alive {
			prevOwner = e.prevOwner
		}
		t.Update(e.id, func(r *model.Row) {
			r.State = e.prevState
			// The batch that dispatched the row before is gone; nothing will finish it.
			if r.State == model.RowStateDispatched && prevOwner == "" {
				r.State = model.RowStateIdle
			}
			r.Status = e.prevStatus
		})
		if prevOwner != "" {
			t.owner[e.id] = prevOwner
		} else {
			delete(t.owner, e.id)
		}
	}
	t.release(pb)
	logger.Debugf("WorkTracker: abandoned batch %s.", pb.id)
	return nil
}

func (t *WorkTracker[P]) release(pb *pendingBatch) {
	pb.channel.Clear()
	delete(t.pending, pb.id)
	for i, id := range t.order {
		if id == pb.id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// DeleteSucceeded removes every Succeeded row and returns the removal-time positions.
func (t *WorkTracker[P]) DeleteSucceeded() []int {
	return t.RemoveWhere(func(r *model.Row) bool { return r.Succeeded() })
}
