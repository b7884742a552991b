package table

import (
	"fmt"

	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

const selectionModule = "selection_table"

// DefaultSelectColumnLabel is the header label of the check column.
const DefaultSelectColumnLabel = "Select"

// CheckState is the check-box value of a row.
type CheckState int

const (
	Unchecked CheckState = iota
	Checked
)

// Valid reports whether c is a known check state.
func (c CheckState) Valid() bool {
	return c == Unchecked || c == Checked
}

func (c CheckState) String() string {
	switch c {
	case Unchecked:
		return "unchecked"
	case Checked:
		return "checked"
	default:
		return fmt.Sprintf("CheckState(%d)", int(c))
	}
}

// CheckStateOf converts a boolean into a CheckState.
func CheckStateOf(checked bool) CheckState {
	if checked {
		return Checked
	}
	return Unchecked
}

func validateCheckState(c CheckState) error {
	if !c.Valid() {
		return exception.NewContractViolation(selectionModule, "invalid check state %d", int(c))
	}
	return nil
}

type rowOptions struct {
	checkState *CheckState
	selectable bool
	status     string
}

// RowOption customises a row added through SelectionTable.AddRow.
type RowOption func(*rowOptions)

// WithCheckState overrides the table default check state for the new row.
func WithCheckState(c CheckState) RowOption {
	return func(o *rowOptions) { o.checkState = &c }
}

// WithSelectable sets whether the row's check box is enabled. Rows are selectable by default.
func WithSelectable(selectable bool) RowOption {
	return func(o *rowOptions) { o.selectable = selectable }
}

// WithStatus sets the initial status text of the new row.
func WithStatus(text string) RowOption {
	return func(o *rowOptions) { o.status = text }
}

// SelectionOption configures a SelectionTable.
type SelectionOption func(*SelectionTable)

// WithSelectColumnLabel sets the header label of the check column.
func WithSelectColumnLabel(label string) SelectionOption {
	return func(t *SelectionTable) { t.selectLabel = label }
}

// WithDefaultChecked sets the check state applied to rows added without an explicit one.
func WithDefaultChecked(checked bool) SelectionOption {
	return func(t *SelectionTable) { t.defaultState = CheckStateOf(checked) }
}

// SelectionTable adds a check column to a RowStore.
// A row that is not selectable always reads as unchecked to bulk queries and dispatch.
type SelectionTable struct {
	*RowStore

	selectLabel  string
	defaultState CheckState
}

// NewSelectionTable creates an empty selection table with the given domain header.
func NewSelectionTable(header []string, opts ...SelectionOption) *SelectionTable {
	t := &SelectionTable{
		RowStore:     NewRowStore(header...),
		selectLabel:  DefaultSelectColumnLabel,
		defaultState: Unchecked,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Header returns the check column label followed by the domain labels.
func (t *SelectionTable) Header() []string {
	return append([]string{t.selectLabel}, t.RowStore.Header()...)
}

// SelectColumnLabel returns the header label of the check column.
func (t *SelectionTable) SelectColumnLabel() string {
	return t.selectLabel
}

// DefaultCheckState returns the check state given to new rows.
func (t *SelectionTable) DefaultCheckState() CheckState {
	return t.defaultState
}

// SetDefaultCheckState changes the check state given to rows added from now on.
func (t *SelectionTable) SetDefaultCheckState(c CheckState) error {
	if err := validateCheckState(c); err != nil {
		return err
	}
	t.defaultState = c
	return nil
}

// newRow builds the row AddRow would append, without appending it.
func (t *SelectionTable) newRow(columns []string, opts []RowOption) (model.Row, error) {
	o := rowOptions{selectable: true}
	for _, opt := range opts {
		opt(&o)
	}
	state := t.defaultState
	if o.checkState != nil {
		if err := validateCheckState(*o.checkState); err != nil {
			return model.Row{}, err
		}
		state = *o.checkState
	}
	return model.Row{
		Columns:    columns,
		Checked:    state == Checked,
		Selectable: o.selectable,
		Status:     o.status,
	}, nil
}

// AddRow appends a row with the default (or overridden) check state.
func (t *SelectionTable) AddRow(columns []string, opts ...RowOption) (model.StableID, error) {
	r, err := t.newRow(columns, opts)
	if err != nil {
		return 0, err
	}
	return t.Append(r), nil
}

// SetRows replaces the content; every row gets the default check state and is selectable.
func (t *SelectionTable) SetRows(rows [][]string) error {
	prepared := make([]model.Row, len(rows))
	for i, cols := range rows {
		r, err := t.newRow(cols, nil)
		if err != nil {
			return err
		}
		prepared[i] = r
	}
	return t.Replace(prepared)
}

func (t *SelectionTable) setAll(selectableOnly bool, fn func(r *model.Row) bool) {
	t.each(func(pos int, r *model.Row) {
		if selectableOnly && !r.Selectable {
			return
		}
		next := fn(r)
		if next == r.Checked {
			return
		}
		r.Checked = next
		t.notify(Event{Kind: EventChanged, Position: pos, ID: r.ID})
	})
}

// SelectAll checks every selectable row.
func (t *SelectionTable) SelectAll() {
	t.setAll(true, func(*model.Row) bool { return true })
}

// ReverseSelection flips the check state of every selectable row.
func (t *SelectionTable) ReverseSelection() {
	t.setAll(true, func(r *model.Row) bool { return !r.Checked })
}

// ClearSelection unchecks every row, selectable or not.
func (t *SelectionTable) ClearSelection() {
	t.setAll(false, func(*model.Row) bool { return false })
}

// DeleteSelected removes every effectively checked row in one pass and returns the
// removal-time positions.
func (t *SelectionTable) DeleteSelected() []int {
	return t.RemoveWhere(func(r *model.Row) bool { return r.EffectivelyChecked() })
}

// CheckedCount returns the number of effectively checked rows.
func (t *SelectionTable) CheckedCount() int {
	n := 0
	t.each(func(_ int, r *model.Row) {
		if r.EffectivelyChecked() {
			n++
		}
	})
	return n
}

// SelectableCount returns the number of rows whose check box is enabled.
func (t *SelectionTable) SelectableCount() int {
	n := 0
	t.each(func(_ int, r *model.Row) {
		if r.Selectable {
			n++
		}
	})
	return n
}

// AllSelected reports whether every selectable row is checked.
// It is false for an empty table and true for a non-empty table without selectable rows.
func (t *SelectionTable) AllSelected() bool {
	if t.Len() == 0 {
		return false
	}
	return t.CheckedCount() == t.SelectableCount()
}

// CheckedPositions returns the positions of effectively checked rows in ascending order.
func (t *SelectionTable) CheckedPositions() []int {
	out := make([]int, 0)
	t.each(func(pos int, r *model.Row) {
		if r.EffectivelyChecked() {
			out = append(out, pos)
		}
	})
	return out
}

// CheckedIDs returns the StableIDs of effectively checked rows in positional order.
func (t *SelectionTable) CheckedIDs() []model.StableID {
	out := make([]model.StableID, 0)
	t.each(func(_ int, r *model.Row) {
		if r.EffectivelyChecked() {
			out = append(out, r.ID)
		}
	})
	return out
}

// RowCheckStates returns the effective check state of every row in positional order.
func (t *SelectionTable) RowCheckStates() []bool {
	out := make([]bool, 0, t.Len())
	t.each(func(_ int, r *model.Row) {
		out = append(out, r.EffectivelyChecked())
	})
	return out
}

// IsChecked reports the effective check state of the row at pos.
func (t *SelectionTable) IsChecked(pos int) (bool, error) {
	if err := t.checkPosition(pos); err != nil {
		return false, err
	}
	return t.rows[pos].EffectivelyChecked(), nil
}

// SetChecked sets the check state of the row at pos. The raw flag is stored even if the row
// is currently not selectable; it only counts once the row is selectable again.
func (t *SelectionTable) SetChecked(pos int, c CheckState) error {
	if err := validateCheckState(c); err != nil {
		return err
	}
	return t.UpdateAt(pos, func(r *model.Row) { r.Checked = c == Checked })
}

// SetSelectable enables or disables the check box of the row at pos.
func (t *SelectionTable) SetSelectable(pos int, selectable bool) error {
	return t.UpdateAt(pos, func(r *model.Row) { r.Selectable = selectable })
}
