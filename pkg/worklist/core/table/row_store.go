// Package table implements the ordered, checkable row collection behind a work list.
//
// The layers compose by embedding: RowStore keeps ordered rows with StableIDs,
// SelectionTable adds check/selectable flags, PayloadTable adds one typed payload per row.
// None of the types are safe for concurrent use; they belong to the owning goroutine.
package table

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

const storeModule = "row_store"

// EventKind identifies a change reported to observers.
type EventKind int

const (
	// EventInserted reports a row appended at Position.
	EventInserted EventKind = iota
	// EventRemoved reports the row ID removed from Position; later rows moved up by one.
	EventRemoved
	// EventChanged reports a data change of the row at Position.
	EventChanged
	// EventReset reports that every row was removed.
	EventReset
	// EventHeaderChanged reports new header labels.
	EventHeaderChanged
)

func (k EventKind) String() string {
	switch k {
	case EventInserted:
		return "inserted"
	case EventRemoved:
		return "removed"
	case EventChanged:
		return "changed"
	case EventReset:
		return "reset"
	case EventHeaderChanged:
		return "header_changed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes one mutation. Position is -1 for EventReset and EventHeaderChanged.
type Event struct {
	Kind     EventKind
	Position int
	ID       model.StableID
}

// Observer receives mutation events synchronously, after the mutation has been applied.
type Observer func(Event)

// RowStore is an ordered, mutable collection of rows with text columns.
// Rows are addressed by position or by StableID; the ID-to-position index is rebuilt lazily
// after removals, so positional shifts never need explicit remapping.
type RowStore struct {
	header []string
	rows   []*model.Row

	index      map[model.StableID]int
	indexDirty bool

	lastID model.StableID

	observers  map[int]Observer
	observerID int
}

// NewRowStore creates an empty store. header declares the domain column labels; when it is
// non-empty SetRows rejects rows with a different column count.
func NewRowStore(header ...string) *RowStore {
	return &RowStore{
		header:    append([]string(nil), header...),
		index:     make(map[model.StableID]int),
		observers: make(map[int]Observer),
	}
}

// Subscribe attaches an observer and returns a function that detaches it.
func (s *RowStore) Subscribe(o Observer) func() {
	s.observerID++
	id := s.observerID
	s.observers[id] = o
	return func() { delete(s.observers, id) }
}

func (s *RowStore) notify(e Event) {
	for _, o := range s.observers {
		o(e)
	}
}

// Header returns the domain column labels.
func (s *RowStore) Header() []string {
	return append([]string(nil), s.header...)
}

// SetHeader replaces the domain column labels.
func (s *RowStore) SetHeader(labels []string) {
	s.header = append([]string(nil), labels...)
	s.notify(Event{Kind: EventHeaderChanged, Position: -1})
}

// Len returns the number of rows.
func (s *RowStore) Len() int {
	return len(s.rows)
}

// LastID returns the most recently assigned StableID, or 0 if none was assigned yet.
func (s *RowStore) LastID() model.StableID {
	return s.lastID
}

// SetRows replaces the whole content with plain rows.
func (s *RowStore) SetRows(rows [][]string) error {
	prepared := make([]model.Row, len(rows))
	for i, cols := range rows {
		prepared[i] = model.Row{Columns: cols, Selectable: true}
	}
	return s.Replace(prepared)
}

// Replace clears the store and appends rows in order. If any row is malformed the store is
// left empty and every problem is reported in one error.
func (s *RowStore) Replace(rows []model.Row) error {
	var result *multierror.Error
	if len(s.header) > 0 {
		for i := range rows {
			if len(rows[i].Columns) != len(s.header) {
				result = multierror.Append(result, fmt.Errorf("row %d has %d columns, header declares %d", i, len(rows[i].Columns), len(s.header)))
			}
		}
	}

	s.Clear()
	if err := result.ErrorOrNil(); err != nil {
		return exception.NewWorklistError(exception.KindContractViolation, storeModule, "malformed rows in replacement", err)
	}
	for _, r := range rows {
		s.Append(r)
	}
	return nil
}

// AddRow appends a row and returns its StableID.
func (s *RowStore) AddRow(columns []string) model.StableID {
	return s.Append(model.Row{Columns: columns, Selectable: true})
}

// Append inserts a copy of r at the end, assigning the next StableID (any ID in r is ignored).
func (s *RowStore) Append(r model.Row) model.StableID {
	s.lastID++
	row := r.Clone()
	row.ID = s.lastID
	if row.State == "" {
		row.State = model.RowStateIdle
	}
	s.rows = append(s.rows, &row)
	pos := len(s.rows) - 1
	if !s.indexDirty {
		s.index[row.ID] = pos
	}
	s.notify(Event{Kind: EventInserted, Position: pos, ID: row.ID})
	return row.ID
}

func (s *RowStore) checkPosition(pos int) error {
	if pos < 0 || pos >= len(s.rows) {
		return exception.NewContractViolation(storeModule, "row position %d out of range [0, %d)", pos, len(s.rows))
	}
	return nil
}

// RemoveRow removes the row at pos.
func (s *RowStore) RemoveRow(pos int) error {
	if err := s.checkPosition(pos); err != nil {
		return err
	}
	s.removeAt(pos)
	return nil
}

func (s *RowStore) removeAt(pos int) {
	id := s.rows[pos].ID
	copy(s.rows[pos:], s.rows[pos+1:])
	s.rows[len(s.rows)-1] = nil
	s.rows = s.rows[:len(s.rows)-1]
	delete(s.index, id)
	s.indexDirty = true
	s.notify(Event{Kind: EventRemoved, Position: pos, ID: id})
}

// RemoveID removes the row with the given ID. It reports whether the row existed.
func (s *RowStore) RemoveID(id model.StableID) bool {
	pos, ok := s.Position(id)
	if !ok {
		return false
	}
	return s.RemoveRow(pos) == nil
}

// RemoveWhere removes every row matching pred, scanning left to right. Rows are removed one at a
// time, so each EventRemoved is sent with the store already in its post-removal state. It returns
// the position of each removed row at the moment it was removed, i.e. relative to the
// progressively shrinking sequence.
func (s *RowStore) RemoveWhere(pred func(*model.Row) bool) []int {
	removed := make([]int, 0)
	for pos := 0; pos < len(s.rows); {
		if !pred(s.rows[pos]) {
			pos++
			continue
		}
		removed = append(removed, pos)
		s.removeAt(pos)
	}
	return removed
}

// Clear removes all rows. StableID allocation continues from where it was.
func (s *RowStore) Clear() {
	for i := range s.rows {
		s.rows[i] = nil
	}
	s.rows = s.rows[:0]
	s.index = make(map[model.StableID]int)
	s.indexDirty = false
	s.notify(Event{Kind: EventReset, Position: -1})
}

func (s *RowStore) rebuildIndex() {
	s.index = make(map[model.StableID]int, len(s.rows))
	for pos, r := range s.rows {
		s.index[r.ID] = pos
	}
	s.indexDirty = false
}

// Position resolves a StableID to its current position.
func (s *RowStore) Position(id model.StableID) (int, bool) {
	if s.indexDirty {
		s.rebuildIndex()
	}
	pos, ok := s.index[id]
	return pos, ok
}

// Row returns a copy of the row at pos.
func (s *RowStore) Row(pos int) (model.Row, bool) {
	if pos < 0 || pos >= len(s.rows) {
		return model.Row{}, false
	}
	return s.rows[pos].Clone(), true
}

// RowByID returns a copy of the row with the given ID.
func (s *RowStore) RowByID(id model.StableID) (model.Row, bool) {
	pos, ok := s.Position(id)
	if !ok {
		return model.Row{}, false
	}
	return s.rows[pos].Clone(), true
}

// Rows returns copies of all rows in positional order.
func (s *RowStore) Rows() []model.Row {
	out := make([]model.Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Clone()
	}
	return out
}

// IDs returns the StableIDs in positional order.
func (s *RowStore) IDs() []model.StableID {
	ids := make([]model.StableID, len(s.rows))
	for i, r := range s.rows {
		ids[i] = r.ID
	}
	return ids
}

// Update applies fn to the row with the given ID and notifies observers.
// fn must not keep the pointer; the row's ID cannot be changed.
func (s *RowStore) Update(id model.StableID, fn func(*model.Row)) bool {
	pos, ok := s.Position(id)
	if !ok {
		return false
	}
	s.updateAt(pos, fn)
	return true
}

// UpdateAt applies fn to the row at pos and notifies observers.
func (s *RowStore) UpdateAt(pos int, fn func(*model.Row)) error {
	if err := s.checkPosition(pos); err != nil {
		return err
	}
	s.updateAt(pos, fn)
	return nil
}

func (s *RowStore) updateAt(pos int, fn func(*model.Row)) {
	r := s.rows[pos]
	id := r.ID
	fn(r)
	r.ID = id
	s.notify(Event{Kind: EventChanged, Position: pos, ID: id})
}

// each calls fn for every row in positional order.
func (s *RowStore) each(fn func(pos int, r *model.Row)) {
	for pos, r := range s.rows {
		fn(pos, r)
	}
}
