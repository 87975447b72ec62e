package notebook

import (
	"notebook/internal/display"
	"notebook/internal/logging"
	"notebook/internal/sequence"
	"notebook/internal/types"
)

// PeerProxy is the outbound side of the sync protocol. The document model
// pushes serialized splices through it; implementations fan the messages out
// to connected presentation surfaces.
type PeerProxy interface {
	CreateDocument(handle int, viewType, uri string, cells []*types.CellRecord)
	SpliceCells(uri string, splices []*types.CellSplice, usedRenderers []types.RendererHandle)
	SpliceCellOutputs(uri string, cellHandle int, splices []*types.OutputSplice, usedRenderers []types.RendererHandle)
	RegisterRenderer(info *types.RendererInfo)
	UnregisterRenderer(handle types.RendererHandle)
	UpdateLanguages(uri string, languages []string)
}

// NopPeer discards everything. Used before any presentation surface connects
// and in tests that only exercise the model.
type NopPeer struct{}

func (NopPeer) CreateDocument(int, string, string, []*types.CellRecord) {}

func (NopPeer) SpliceCells(string, []*types.CellSplice, []types.RendererHandle) {}

func (NopPeer) SpliceCellOutputs(string, int, []*types.OutputSplice, []types.RendererHandle) {}

func (NopPeer) RegisterRenderer(*types.RendererInfo) {}

func (NopPeer) UnregisterRenderer(types.RendererHandle) {}

func (NopPeer) UpdateLanguages(string, []string) {}

// pickLookup returns the persisted picked-candidate index for one output
// position, if any.
type pickLookup func(cellHandle, outputIndex int) (int, bool)

// Document models one open notebook. Cells are wired to the document by a
// per-cell subscription group; the cells setter keeps the set of groups in
// lockstep with the diffed cell list.
type Document struct {
	handle    int
	viewType  string
	uri       string
	languages []string

	cells         []*Cell
	subscriptions map[int]*resourceGroup

	peer     PeerProxy
	resolver *display.Resolver
	picks    pickLookup
	logger   logging.Logger
}

// resourceGroup owns the teardown funcs for one cell's wiring. Disposing the
// group runs them in reverse registration order.
type resourceGroup struct {
	disposers []func()
}

func (g *resourceGroup) Add(dispose func()) {
	if dispose != nil {
		g.disposers = append(g.disposers, dispose)
	}
}

func (g *resourceGroup) Dispose() {
	for i := len(g.disposers) - 1; i >= 0; i-- {
		g.disposers[i]()
	}
	g.disposers = nil
}

func newDocument(handle int, viewType, uri string, peer PeerProxy, resolver *display.Resolver, picks pickLookup, logger logging.Logger) *Document {
	if peer == nil {
		peer = NopPeer{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Document{
		handle:        handle,
		viewType:      viewType,
		uri:           uri,
		subscriptions: map[int]*resourceGroup{},
		peer:          peer,
		resolver:      resolver,
		picks:         picks,
		logger:        logger,
	}
}

func (d *Document) Handle() int { return d.handle }

func (d *Document) ViewType() string { return d.viewType }

func (d *Document) URI() string { return d.uri }

func (d *Document) Languages() []string {
	return append([]string(nil), d.languages...)
}

func (d *Document) Cells() []*Cell {
	return append([]*Cell(nil), d.cells...)
}

func (d *Document) CellAt(index int) (*Cell, bool) {
	if index < 0 || index >= len(d.cells) {
		return nil, false
	}
	return d.cells[index], true
}

// CellByHandle finds a cell by its stable handle.
func (d *Document) CellByHandle(handle int) (*Cell, bool) {
	for _, cell := range d.cells {
		if cell.Handle() == handle {
			return cell, true
		}
	}
	return nil, false
}

// Info returns the transport summary for this document.
func (d *Document) Info() *types.NotebookInfo {
	return &types.NotebookInfo{
		Handle:    d.handle,
		ViewType:  d.viewType,
		URI:       d.uri,
		Languages: d.Languages(),
	}
}

// Records serializes every cell, used for initial-state snapshots.
func (d *Document) Records() []*types.CellRecord {
	records := make([]*types.CellRecord, 0, len(d.cells))
	for _, cell := range d.cells {
		records = append(records, d.recordCell(cell))
	}
	return records
}

// recordCell serializes one cell and re-applies any persisted mimetype pick
// to the freshly resolved outputs. Cell.Record resolves from scratch on every
// call, so the persisted pick must be restored here or it would only survive
// until the next serialization.
func (d *Document) recordCell(cell *Cell) *types.CellRecord {
	record := cell.Record(d.resolver)
	d.applyPersistedPicks(cell.Handle(), 0, record.Outputs)
	return record
}

func (d *Document) applyPersistedPicks(cellHandle, startIndex int, outputs []*types.TransformedOutput) {
	if d.picks == nil {
		return
	}
	for i, transformed := range outputs {
		index, ok := d.picks(cellHandle, startIndex+i)
		if !ok || index == 0 {
			continue
		}
		if err := d.resolver.Pick(transformed, index); err != nil {
			// Stale pick for an output that no longer has that candidate.
			d.logger.Debug("pick_restore_skipped",
				logging.F("cell", cellHandle),
				logging.F("output", startIndex+i),
				logging.F("index", index),
			)
		}
	}
}

// SetCells replaces the cell list. The new list is diffed against the
// current one by handle; removed cells are unwired before any splice is
// forwarded, inserted cells are wired, and the serialized splices plus the
// renderer handles their outputs resolved to go to the peer in one batch.
func (d *Document) SetCells(cells []*Cell) []*types.CellSplice {
	old := d.cells
	splices := sequence.Diff(old, cells, cellHandle, func(handle int64) bool {
		_, ok := d.subscriptions[int(handle)]
		return ok
	})
	if len(splices) == 0 {
		return nil
	}
	d.cells = append([]*Cell(nil), cells...)

	wire := make([]*types.CellSplice, 0, len(splices))
	var used []types.RendererHandle
	for _, splice := range splices {
		for i := 0; i < splice.DeleteCount; i++ {
			d.unwireCell(old[splice.Start+i])
		}
		records := make([]*types.CellRecord, 0, len(splice.Inserted))
		for _, cell := range splice.Inserted {
			d.wireCell(cell)
			record := d.recordCell(cell)
			records = append(records, record)
			used = mergeHandles(used, display.UsedRendererHandles(record.Outputs))
		}
		wire = append(wire, &types.CellSplice{
			Start:       splice.Start,
			DeleteCount: splice.DeleteCount,
			Cells:       records,
		})
	}
	d.peer.SpliceCells(d.uri, wire, used)
	return wire
}

// SetLanguages updates the supported cell languages and notifies the peer.
func (d *Document) SetLanguages(languages []string) {
	d.languages = append([]string(nil), languages...)
	d.peer.UpdateLanguages(d.uri, d.Languages())
}

// SubscribedHandles reports which cell handles currently hold a live
// subscription group.
func (d *Document) SubscribedHandles() []int {
	handles := make([]int, 0, len(d.subscriptions))
	for handle := range d.subscriptions {
		handles = append(handles, handle)
	}
	return handles
}

func (d *Document) wireCell(cell *Cell) {
	if _, ok := d.subscriptions[cell.Handle()]; ok {
		// A relocation splice pair can re-insert a handle that a later
		// splice already re-wired; keep a single group per handle.
		return
	}
	group := &resourceGroup{}
	group.Add(cell.OnOutputsSpliced(func(splices []sequence.Splice[*types.Output]) {
		d.forwardOutputSplices(cell, splices)
	}))
	d.subscriptions[cell.Handle()] = group
}

func (d *Document) unwireCell(cell *Cell) {
	group, ok := d.subscriptions[cell.Handle()]
	if !ok {
		return
	}
	group.Dispose()
	delete(d.subscriptions, cell.Handle())
}

func (d *Document) forwardOutputSplices(cell *Cell, splices []sequence.Splice[*types.Output]) {
	wire := make([]*types.OutputSplice, 0, len(splices))
	var used []types.RendererHandle
	for _, splice := range splices {
		transformed := make([]*types.TransformedOutput, 0, len(splice.Inserted))
		for _, output := range splice.Inserted {
			transformed = append(transformed, d.resolver.Resolve(output))
		}
		// Picks are keyed by output position, so a replacement output at the
		// same slot keeps the user's mimetype preference.
		d.applyPersistedPicks(cell.Handle(), splice.Start, transformed)
		used = mergeHandles(used, display.UsedRendererHandles(transformed))
		wire = append(wire, &types.OutputSplice{
			Start:       splice.Start,
			DeleteCount: splice.DeleteCount,
			Outputs:     transformed,
		})
	}
	d.peer.SpliceCellOutputs(d.uri, cell.Handle(), wire, used)
}

// dispose unwires every cell, used when the document closes.
func (d *Document) dispose() {
	for _, cell := range d.cells {
		d.unwireCell(cell)
	}
	d.cells = nil
}

func cellHandle(c *Cell) int64 {
	if c == nil {
		return 0
	}
	return int64(c.handle)
}

func mergeHandles(into, add []types.RendererHandle) []types.RendererHandle {
	for _, handle := range add {
		found := false
		for _, have := range into {
			if have == handle {
				found = true
				break
			}
		}
		if !found {
			into = append(into, handle)
		}
	}
	return into
}
