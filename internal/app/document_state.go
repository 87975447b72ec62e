package app

import (
	"notebook/internal/presenter"
	"notebook/internal/remote"
	"notebook/internal/types"
)

// documentState mirrors one open notebook on the viewer side, applying the
// daemon's splices incrementally instead of re-fetching snapshots.
type documentState struct {
	info  *types.NotebookInfo
	cells []*cellState
	width int
}

type cellState struct {
	record    *types.CellRecord
	presenter *presenter.CellPresenter
}

func newDocumentState(info *types.NotebookInfo, cells []*types.CellRecord, width int) *documentState {
	d := &documentState{info: info, width: width}
	for _, record := range cells {
		d.cells = append(d.cells, d.newCellState(record))
	}
	return d
}

func (d *documentState) newCellState(record *types.CellRecord) *cellState {
	cs := &cellState{
		record:    record,
		presenter: presenter.NewCellPresenter(record.Handle, presenter.Options{Width: d.width}),
	}
	cs.presenter.SetOutputs(record.Outputs)
	return cs
}

func (d *documentState) cellByHandle(handle int) (*cellState, bool) {
	for _, cell := range d.cells {
		if cell.record.Handle == handle {
			return cell, true
		}
	}
	return nil, false
}

// applyCellSplices mutates the cell list with the same offset discipline the
// diff engine's Apply uses, so ordering matches the daemon's model.
func (d *documentState) applyCellSplices(payload *remote.SpliceCellsPayload) {
	offset := 0
	for _, splice := range payload.Splices {
		start := splice.Start + offset
		if start < 0 {
			start = 0
		}
		if start > len(d.cells) {
			start = len(d.cells)
		}
		end := start + splice.DeleteCount
		if end > len(d.cells) {
			end = len(d.cells)
		}
		inserted := make([]*cellState, 0, len(splice.Cells))
		for _, record := range splice.Cells {
			inserted = append(inserted, d.newCellState(record))
		}
		d.cells = append(d.cells[:start], append(inserted, d.cells[end:]...)...)
		offset += len(splice.Cells) - (end - start)
	}
}

func (d *documentState) applyOutputSplices(payload *remote.SpliceCellOutputsPayload) bool {
	cell, ok := d.cellByHandle(payload.CellHandle)
	if !ok {
		return false
	}
	cell.presenter.ApplyOutputSplices(payload.Splices)
	// Keep the record's output list aligned for copy and re-render.
	offset := 0
	outputs := cell.record.Outputs
	for _, splice := range payload.Splices {
		start := splice.Start + offset
		if start < 0 {
			start = 0
		}
		if start > len(outputs) {
			start = len(outputs)
		}
		end := start + splice.DeleteCount
		if end > len(outputs) {
			end = len(outputs)
		}
		outputs = append(outputs[:start], append(append([]*types.TransformedOutput(nil), splice.Outputs...), outputs[end:]...)...)
		offset += len(splice.Outputs) - (end - start)
	}
	cell.record.Outputs = outputs
	return true
}

func (d *documentState) applyPick(cellHandle, outputIndex int, transformed *types.TransformedOutput) bool {
	cell, ok := d.cellByHandle(cellHandle)
	if !ok {
		return false
	}
	if outputIndex < 0 || outputIndex >= len(cell.record.Outputs) {
		return false
	}
	cell.record.Outputs[outputIndex] = transformed
	return cell.presenter.ApplyPick(outputIndex, transformed)
}

func (d *documentState) setWidth(width int) {
	if width <= 0 || width == d.width {
		return
	}
	d.width = width
	for _, cell := range d.cells {
		cell.presenter.SetWidth(width)
	}
}
