package notebook

import (
	"context"
	"testing"

	"notebook/internal/display"
	"notebook/internal/sequence"
	"notebook/internal/types"
)

type capturePeer struct {
	NopPeer
	created       []string
	cellSplices   [][]*types.CellSplice
	outputSplices []capturedOutputSplice
	languages     map[string][]string
}

type capturedOutputSplice struct {
	uri        string
	cellHandle int
	splices    []*types.OutputSplice
	used       []types.RendererHandle
}

func (p *capturePeer) CreateDocument(handle int, viewType, uri string, cells []*types.CellRecord) {
	p.created = append(p.created, uri)
}

func (p *capturePeer) SpliceCells(uri string, splices []*types.CellSplice, used []types.RendererHandle) {
	p.cellSplices = append(p.cellSplices, splices)
}

func (p *capturePeer) SpliceCellOutputs(uri string, cellHandle int, splices []*types.OutputSplice, used []types.RendererHandle) {
	p.outputSplices = append(p.outputSplices, capturedOutputSplice{
		uri:        uri,
		cellHandle: cellHandle,
		splices:    splices,
		used:       used,
	})
}

func (p *capturePeer) UpdateLanguages(uri string, languages []string) {
	if p.languages == nil {
		p.languages = map[string][]string{}
	}
	p.languages[uri] = languages
}

type staticProvider struct {
	cells    []CellData
	executed []int
	saved    bool
}

func (p *staticProvider) ResolveNotebook(ctx context.Context, uri string) ([]CellData, error) {
	return p.cells, nil
}

func (p *staticProvider) ExecuteCell(ctx context.Context, uri string, cellHandle int) error {
	p.executed = append(p.executed, cellHandle)
	return nil
}

func (p *staticProvider) SaveNotebook(ctx context.Context, uri string) (bool, error) {
	p.saved = true
	return true, nil
}

func newTestDocument(peer PeerProxy) *Document {
	resolver := display.NewResolver(nil, nil, nil)
	return newDocument(1, "test-notebook", "file:///nb.ipynb", peer, resolver, nil, nil)
}

func TestSetCellsRemovalUnwiresExactlyTheRemovedCell(t *testing.T) {
	peer := &capturePeer{}
	doc := newTestDocument(peer)
	c1 := newCell(1, []string{"a"}, "go", types.CellKindCode)
	c2 := newCell(2, []string{"b"}, "go", types.CellKindCode)
	c3 := newCell(3, []string{"c"}, "go", types.CellKindCode)
	doc.SetCells([]*Cell{c1, c2, c3})
	peer.cellSplices = nil

	wire := doc.SetCells([]*Cell{c1, c3})
	if len(wire) != 1 {
		t.Fatalf("splice count = %d, want 1: %#v", len(wire), wire)
	}
	if wire[0].Start != 1 || wire[0].DeleteCount != 1 || len(wire[0].Cells) != 0 {
		t.Fatalf("unexpected splice: %#v", wire[0])
	}

	handles := map[int]bool{}
	for _, h := range doc.SubscribedHandles() {
		handles[h] = true
	}
	if len(handles) != 2 || !handles[1] || !handles[3] {
		t.Fatalf("subscriptions = %v, want handles 1 and 3", doc.SubscribedHandles())
	}

	// The removed cell's splices must no longer reach the peer.
	c2.SetOutputs([]*types.Output{{ID: 99, Kind: types.OutputKindStream, Text: "late"}})
	if len(peer.outputSplices) != 0 {
		t.Fatalf("removed cell still forwards output splices: %#v", peer.outputSplices)
	}

	// Surviving cells still forward.
	c3.SetOutputs([]*types.Output{{ID: 100, Kind: types.OutputKindStream, Text: "live"}})
	if len(peer.outputSplices) != 1 || peer.outputSplices[0].cellHandle != 3 {
		t.Fatalf("surviving cell did not forward: %#v", peer.outputSplices)
	}
}

func TestSetCellsIdenticalListEmitsNothing(t *testing.T) {
	peer := &capturePeer{}
	doc := newTestDocument(peer)
	c1 := newCell(1, nil, "go", types.CellKindCode)
	c2 := newCell(2, nil, "go", types.CellKindCode)
	doc.SetCells([]*Cell{c1, c2})
	peer.cellSplices = nil

	if wire := doc.SetCells([]*Cell{c1, c2}); wire != nil {
		t.Fatalf("identical list produced splices: %#v", wire)
	}
	if len(peer.cellSplices) != 0 {
		t.Fatalf("peer notified for no-op: %#v", peer.cellSplices)
	}
}

func TestSetCellsReorderKeepsEveryCellSubscribed(t *testing.T) {
	peer := &capturePeer{}
	doc := newTestDocument(peer)
	c1 := newCell(1, nil, "go", types.CellKindCode)
	c2 := newCell(2, nil, "go", types.CellKindCode)
	c3 := newCell(3, nil, "go", types.CellKindCode)
	doc.SetCells([]*Cell{c1, c2, c3})

	doc.SetCells([]*Cell{c3, c1, c2})
	if got := len(doc.SubscribedHandles()); got != 3 {
		t.Fatalf("subscription count = %d after reorder, want 3", got)
	}

	c1.SetOutputs([]*types.Output{{ID: 5, Kind: types.OutputKindStream, Text: "x"}})
	if len(peer.outputSplices) != 1 {
		t.Fatalf("forward count = %d, want exactly 1 after reorder", len(peer.outputSplices))
	}
}

func TestCellIdenticalOutputListIsSilent(t *testing.T) {
	cell := newCell(1, nil, "go", types.CellKindCode)
	a := &types.Output{ID: 1, Kind: types.OutputKindStream, Text: "a"}
	b := &types.Output{ID: 2, Kind: types.OutputKindStream, Text: "b"}
	cell.SetOutputs([]*types.Output{a, b})

	notifications := 0
	cell.OnOutputsSpliced(func(splices []sequence.Splice[*types.Output]) {
		notifications++
	})
	cell.SetOutputs([]*types.Output{a, b})
	if notifications != 0 {
		t.Fatalf("identical list notified %d times", notifications)
	}
}

func TestCellUnsubscribeStopsNotifications(t *testing.T) {
	cell := newCell(1, nil, "go", types.CellKindCode)
	notifications := 0
	cancel := cell.OnOutputsSpliced(func(splices []sequence.Splice[*types.Output]) {
		notifications++
	})
	cell.SetOutputs([]*types.Output{{ID: 1, Kind: types.OutputKindStream}})
	cancel()
	cell.SetOutputs([]*types.Output{{ID: 2, Kind: types.OutputKindStream}})
	if notifications != 1 {
		t.Fatalf("notifications = %d, want 1 after unsubscribe", notifications)
	}
}

func TestCellBufferAttachDetach(t *testing.T) {
	cell := newCell(1, []string{"original"}, "go", types.CellKindCode)
	buf := &fakeBuffer{uri: "cell:1", version: 1, lines: []string{"original"}}
	cell.AttachTextBuffer(buf)

	if cell.Dirty() {
		t.Fatalf("cell dirty immediately after attach")
	}
	if got := cell.Content(); got[0] != "original" {
		t.Fatalf("content = %#v", got)
	}

	buf.version = 2
	buf.lines = []string{"edited"}
	if !cell.Dirty() {
		t.Fatalf("cell not dirty after buffer edit")
	}
	if got := cell.Content(); got[0] != "edited" {
		t.Fatalf("content did not shift to buffer: %#v", got)
	}

	cell.DetachTextBuffer()
	if cell.Dirty() {
		t.Fatalf("cell dirty after detach")
	}
	if got := cell.Content(); got[0] != "edited" {
		t.Fatalf("detach lost buffer edits: %#v", got)
	}
}

type fakeBuffer struct {
	uri     string
	version int
	lines   []string
}

func (b *fakeBuffer) URI() string     { return b.uri }
func (b *fakeBuffer) Version() int    { return b.version }
func (b *fakeBuffer) Lines() []string { return b.lines }

func newTestManager(peer PeerProxy) *Manager {
	return NewManager(ManagerOptions{Peer: peer})
}

func TestRegisterProviderRejectsDuplicateViewType(t *testing.T) {
	m := newTestManager(nil)
	if err := m.RegisterProvider("nb", &staticProvider{}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := m.RegisterProvider("nb", &staticProvider{}); err == nil {
		t.Fatalf("duplicate view type accepted")
	}
}

func TestResolveNotebookIdempotentByURI(t *testing.T) {
	m := newTestManager(nil)
	provider := &staticProvider{cells: []CellData{{Source: []string{"x"}, Language: "go", Kind: "code"}}}
	if err := m.RegisterProvider("nb", provider); err != nil {
		t.Fatalf("register: %v", err)
	}

	first, err := m.ResolveNotebook(context.Background(), "nb", "file:///a.ipynb")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := m.ResolveNotebook(context.Background(), "nb", "file:///a.ipynb")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first != second {
		t.Fatalf("handles differ: %d vs %d", first, second)
	}
}

func TestResolveNotebookUnknownViewTypeReturnsNegativeHandle(t *testing.T) {
	m := newTestManager(nil)
	handle, err := m.ResolveNotebook(context.Background(), "missing", "file:///a.ipynb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle >= 0 {
		t.Fatalf("handle = %d, want negative for unknown view type", handle)
	}
}

func TestDeleteCellOutOfRangeReturnsFalse(t *testing.T) {
	peer := &capturePeer{}
	m := newTestManager(peer)
	provider := &staticProvider{cells: []CellData{{Kind: "code"}}}
	if err := m.RegisterProvider("nb", provider); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "nb", "file:///a.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	before := len(peer.cellSplices)

	ok, err := m.DeleteCell("file:///a.ipynb", 5)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok {
		t.Fatalf("out-of-range delete reported success")
	}
	if len(peer.cellSplices) != before {
		t.Fatalf("out-of-range delete mutated the document")
	}

	ok, err = m.DeleteCell("file:///a.ipynb", 0)
	if err != nil || !ok {
		t.Fatalf("in-range delete = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestCreateCellReturnsRecordAndSplices(t *testing.T) {
	peer := &capturePeer{}
	m := newTestManager(peer)
	if err := m.RegisterProvider("nb", &staticProvider{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "nb", "file:///a.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	peer.cellSplices = nil

	record, err := m.CreateCell("file:///a.ipynb", 0, "go", "code")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.Handle <= 0 || record.Kind != types.CellKindCode {
		t.Fatalf("unexpected record: %#v", record)
	}
	if len(peer.cellSplices) != 1 {
		t.Fatalf("splice batches = %d, want 1", len(peer.cellSplices))
	}
}

func TestUpdateCellOutputsForwardsToPeer(t *testing.T) {
	peer := &capturePeer{}
	m := newTestManager(peer)
	provider := &staticProvider{cells: []CellData{{Kind: "code"}}}
	if err := m.RegisterProvider("nb", provider); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "nb", "file:///a.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	records, err := m.CellRecords("file:///a.ipynb")
	if err != nil || len(records) != 1 {
		t.Fatalf("records = %#v, %v", records, err)
	}
	handle := records[0].Handle

	err = m.UpdateCellOutputs("file:///a.ipynb", handle, []OutputData{
		{Kind: "stream", Text: "hello"},
	})
	if err != nil {
		t.Fatalf("update outputs: %v", err)
	}
	if len(peer.outputSplices) != 1 {
		t.Fatalf("output splice batches = %d, want 1", len(peer.outputSplices))
	}
	got := peer.outputSplices[0]
	if got.cellHandle != handle || len(got.splices) != 1 {
		t.Fatalf("unexpected forward: %#v", got)
	}
	if got.splices[0].Start != 0 || got.splices[0].DeleteCount != 0 || len(got.splices[0].Outputs) != 1 {
		t.Fatalf("unexpected splice: %#v", got.splices[0])
	}

	// Re-sending an equivalent but fresh output list replaces, not appends.
	err = m.UpdateCellOutputs("file:///a.ipynb", handle, []OutputData{
		{Kind: "stream", Text: "hello again"},
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	second := peer.outputSplices[len(peer.outputSplices)-1]
	if second.splices[0].DeleteCount != 1 {
		t.Fatalf("expected replacement splice, got %#v", second.splices[0])
	}
}

func TestUpdateLanguagesReachesPeer(t *testing.T) {
	peer := &capturePeer{}
	m := newTestManager(peer)
	if err := m.RegisterProvider("nb", &staticProvider{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "nb", "file:///a.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := m.UpdateLanguages("file:///a.ipynb", []string{"go", "python"}); err != nil {
		t.Fatalf("update languages: %v", err)
	}
	if got := peer.languages["file:///a.ipynb"]; len(got) != 2 || got[0] != "go" {
		t.Fatalf("languages = %#v", got)
	}
}

func TestSetActiveEditorValidatesURI(t *testing.T) {
	m := newTestManager(nil)
	if err := m.SetActiveEditor("file:///missing.ipynb"); err == nil {
		t.Fatalf("unknown uri accepted as active editor")
	}
	if err := m.SetActiveEditor(""); err != nil {
		t.Fatalf("clearing active editor: %v", err)
	}
}

type cancelledBufferResolver struct{}

func (cancelledBufferResolver) Resolve(ctx context.Context, uri string, cellHandle int) (TextBuffer, error) {
	return nil, context.Canceled
}

func TestAttachCellTextDocumentCancelledResolveIsSilent(t *testing.T) {
	m := NewManager(ManagerOptions{Buffers: cancelledBufferResolver{}})
	provider := &staticProvider{cells: []CellData{{Kind: "code"}}}
	if err := m.RegisterProvider("nb", provider); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "nb", "file:///a.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	records, _ := m.CellRecords("file:///a.ipynb")

	if err := m.AttachCellTextDocument(context.Background(), "file:///a.ipynb", records[0].Handle); err != nil {
		t.Fatalf("cancelled resolve surfaced error: %v", err)
	}
	refreshed, _ := m.CellRecords("file:///a.ipynb")
	if refreshed[0].Dirty {
		t.Fatalf("cell dirty without an attached buffer")
	}
}
