package table

import (
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// Item is one row of a bulk PayloadTable.SetRows call.
type Item[P any] struct {
	Columns []string
	Payload P
	Options []RowOption
}

// PayloadTable attaches one payload of type P to every row. Payloads travel with their row
// through insertions and removals.
type PayloadTable[P any] struct {
	*SelectionTable
}

// NewPayloadTable creates an empty payload table with the given domain header.
func NewPayloadTable[P any](header []string, opts ...SelectionOption) *PayloadTable[P] {
	return &PayloadTable[P]{SelectionTable: NewSelectionTable(header, opts...)}
}

// AddRow appends a row carrying payload.
func (t *PayloadTable[P]) AddRow(columns []string, payload P, opts ...RowOption) (model.StableID, error) {
	r, err := t.newRow(columns, opts)
	if err != nil {
		return 0, err
	}
	r.Payload = payload
	return t.Append(r), nil
}

// SetRows replaces the content with items. On any invalid item the table is left empty.
func (t *PayloadTable[P]) SetRows(items []Item[P]) error {
	prepared, err := t.prepare(items)
	if err != nil {
		t.Clear()
		return err
	}
	return t.Replace(prepared)
}

func (t *PayloadTable[P]) prepare(items []Item[P]) ([]model.Row, error) {
	prepared := make([]model.Row, len(items))
	for i, it := range items {
		r, err := t.newRow(it.Columns, it.Options)
		if err != nil {
			return nil, err
		}
		r.Payload = it.Payload
		prepared[i] = r
	}
	return prepared, nil
}

func payloadOf[P any](r *model.Row) P {
	p, _ := r.Payload.(P)
	return p
}

// Payload returns the payload of the row at pos.
func (t *PayloadTable[P]) Payload(pos int) (P, bool) {
	if pos < 0 || pos >= t.Len() {
		var zero P
		return zero, false
	}
	return payloadOf[P](t.rows[pos]), true
}

// PayloadByID returns the payload of the row with the given ID.
func (t *PayloadTable[P]) PayloadByID(id model.StableID) (P, bool) {
	pos, ok := t.Position(id)
	if !ok {
		var zero P
		return zero, false
	}
	return payloadOf[P](t.rows[pos]), true
}

// Payloads returns the payloads of all rows in positional order.
func (t *PayloadTable[P]) Payloads() []P {
	out := make([]P, 0, t.Len())
	t.each(func(_ int, r *model.Row) {
		out = append(out, payloadOf[P](r))
	})
	return out
}

// PayloadsOfChecked returns the payloads of effectively checked rows in positional order.
func (t *PayloadTable[P]) PayloadsOfChecked() []P {
	out := make([]P, 0)
	t.each(func(_ int, r *model.Row) {
		if r.EffectivelyChecked() {
			out = append(out, payloadOf[P](r))
		}
	})
	return out
}

// SetPayload replaces the payload of the row at pos.
func (t *PayloadTable[P]) SetPayload(pos int, payload P) error {
	return t.UpdateAt(pos, func(r *model.Row) { r.Payload = payload })
}
