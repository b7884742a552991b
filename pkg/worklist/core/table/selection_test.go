package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/worklist/pkg/worklist/core/table"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

func newSelection(t *testing.T, rows ...string) *table.SelectionTable {
	t.Helper()
	tbl := table.NewSelectionTable([]string{"name"})
	for _, r := range rows {
		_, err := tbl.AddRow([]string{r})
		require.NoError(t, err)
	}
	return tbl
}

func TestSelectionTable_Header(t *testing.T) {
	tbl := table.NewSelectionTable([]string{"name", "size"}, table.WithSelectColumnLabel("Pick"))
	assert.Equal(t, []string{"Pick", "name", "size"}, tbl.Header())
	assert.Equal(t, "Pick", tbl.SelectColumnLabel())
}

func TestSelectionTable_DefaultCheckState(t *testing.T) {
	tbl := table.NewSelectionTable(nil, table.WithDefaultChecked(true))
	_, err := tbl.AddRow([]string{"a"})
	require.NoError(t, err)
	_, err = tbl.AddRow([]string{"b"}, table.WithCheckState(table.Unchecked))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, tbl.RowCheckStates())

	require.NoError(t, tbl.SetDefaultCheckState(table.Unchecked))
	_, err = tbl.AddRow([]string{"c"})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, tbl.CheckedPositions())

	err = tbl.SetDefaultCheckState(table.CheckState(7))
	assert.True(t, exception.IsContractViolation(err))
	assert.Equal(t, table.Unchecked, tbl.DefaultCheckState())

	_, err = tbl.AddRow([]string{"d"}, table.WithCheckState(table.CheckState(-1)))
	assert.True(t, exception.IsContractViolation(err))
	assert.Equal(t, 3, tbl.Len())
}

func TestSelectionTable_BulkOperationsSkipNonSelectable(t *testing.T) {
	tbl := newSelection(t, "a", "b", "c")
	require.NoError(t, tbl.SetSelectable(1, false))

	tbl.SelectAll()
	assert.Equal(t, []int{0, 2}, tbl.CheckedPositions())
	assert.Equal(t, 2, tbl.CheckedCount())
	assert.Equal(t, 2, tbl.SelectableCount())
	assert.True(t, tbl.AllSelected())

	tbl.ReverseSelection()
	assert.Empty(t, tbl.CheckedPositions())
	assert.False(t, tbl.AllSelected())

	require.NoError(t, tbl.SetChecked(0, table.Checked))
	tbl.ReverseSelection()
	assert.Equal(t, []int{2}, tbl.CheckedPositions())

	tbl.ClearSelection()
	assert.Equal(t, 0, tbl.CheckedCount())
}

func TestSelectionTable_NonSelectableReadsUnchecked(t *testing.T) {
	tbl := newSelection(t, "a")
	require.NoError(t, tbl.SetChecked(0, table.Checked))
	require.NoError(t, tbl.SetSelectable(0, false))

	checked, err := tbl.IsChecked(0)
	require.NoError(t, err)
	assert.False(t, checked)
	assert.Equal(t, []bool{false}, tbl.RowCheckStates())
	assert.Empty(t, tbl.DeleteSelected())

	require.NoError(t, tbl.SetSelectable(0, true))
	checked, _ = tbl.IsChecked(0)
	assert.True(t, checked)
}

func TestSelectionTable_AllSelectedEdgeCases(t *testing.T) {
	empty := table.NewSelectionTable(nil)
	assert.False(t, empty.AllSelected())

	tbl := newSelection(t, "a")
	require.NoError(t, tbl.SetSelectable(0, false))
	assert.True(t, tbl.AllSelected(), "no selectable rows means nothing is left unchecked")
}

func TestSelectionTable_DeleteSelected(t *testing.T) {
	tbl := newSelection(t, "a", "b", "c", "d")
	require.NoError(t, tbl.SetChecked(1, table.Checked))
	require.NoError(t, tbl.SetChecked(3, table.Checked))

	removed := tbl.DeleteSelected()
	assert.Equal(t, []int{1, 2}, removed)
	assert.Equal(t, [][]string{{"a"}, {"c"}}, columnsOf(tbl.Rows()))
}

func TestSelectionTable_DeleteSelectedObserversSeeConsistentRows(t *testing.T) {
	tbl := newSelection(t, "a", "b", "c", "d")
	require.NoError(t, tbl.SetChecked(1, table.Checked))
	require.NoError(t, tbl.SetChecked(3, table.Checked))

	var seen [][][]string
	var lens []int
	tbl.Subscribe(func(e table.Event) {
		require.Equal(t, table.EventRemoved, e.Kind)
		_, stillThere := tbl.Position(e.ID)
		assert.False(t, stillThere, "removed row %d is still resolvable", e.ID)
		seen = append(seen, columnsOf(tbl.Rows()))
		lens = append(lens, tbl.Len())
	})

	tbl.DeleteSelected()

	assert.Equal(t, [][][]string{
		{{"a"}, {"c"}, {"d"}},
		{{"a"}, {"c"}},
	}, seen)
	assert.Equal(t, []int{3, 2}, lens)
}

func TestSelectionTable_SetCheckedErrors(t *testing.T) {
	tbl := newSelection(t, "a")
	assert.True(t, exception.IsContractViolation(tbl.SetChecked(0, table.CheckState(3))))
	assert.True(t, exception.IsContractViolation(tbl.SetChecked(5, table.Checked)))
	assert.True(t, exception.IsContractViolation(tbl.SetSelectable(-1, true)))
	_, err := tbl.IsChecked(1)
	assert.True(t, exception.IsContractViolation(err))
}

func TestSelectionTable_SelectAllNotifiesOnlyChangedRows(t *testing.T) {
	tbl := newSelection(t, "a", "b")
	require.NoError(t, tbl.SetChecked(0, table.Checked))
	var positions []int
	tbl.Subscribe(func(e table.Event) { positions = append(positions, e.Position) })
	tbl.SelectAll()
	assert.Equal(t, []int{1}, positions)
}

func TestSelectionTable_ClearSelectionIncludesNonSelectable(t *testing.T) {
	tbl := newSelection(t, "a", "b")
	require.NoError(t, tbl.SetChecked(0, table.Checked))
	require.NoError(t, tbl.SetChecked(1, table.Checked))
	require.NoError(t, tbl.SetSelectable(1, false))

	tbl.ClearSelection()
	require.NoError(t, tbl.SetSelectable(1, true))
	assert.Empty(t, tbl.CheckedPositions())
}

func TestSelectionTable_ReverseTwiceRestores(t *testing.T) {
	tbl := newSelection(t, "a", "b", "c")
	require.NoError(t, tbl.SetChecked(1, table.Checked))
	require.NoError(t, tbl.SetChecked(2, table.Checked))
	require.NoError(t, tbl.SetSelectable(2, false))
	before := tbl.RowCheckStates()

	tbl.ReverseSelection()
	tbl.ReverseSelection()
	assert.Equal(t, before, tbl.RowCheckStates())

	require.NoError(t, tbl.SetSelectable(2, true))
	checked, err := tbl.IsChecked(2)
	require.NoError(t, err)
	assert.True(t, checked, "non-selectable rows keep their raw flag")
}

func TestSelectionTable_SetRows(t *testing.T) {
	tbl := table.NewSelectionTable([]string{"name"}, table.WithDefaultChecked(true))
	require.NoError(t, tbl.SetRows([][]string{{"a"}, {"b"}}))
	assert.Equal(t, []bool{true, true}, tbl.RowCheckStates())

	err := tbl.SetRows([][]string{{"c"}, {"d", "extra"}})
	require.Error(t, err)
	assert.Equal(t, 0, tbl.Len())
}
