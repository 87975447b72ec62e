package notebook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"notebook/internal/display"
	"notebook/internal/logging"
	"notebook/internal/types"
)

var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrUnknownCell     = errors.New("unknown cell")
)

// PrefsStore persists user-scoped display preferences across restarts. The
// manager tolerates a nil store.
type PrefsStore interface {
	SaveUserOrder(patterns []string) error
	LoadUserOrder() ([]string, error)
	SavePickedMimeType(uri string, cellHandle, outputIndex, candidateIndex int) error
	LoadPickedMimeType(uri string, cellHandle, outputIndex int) (int, bool, error)
	DeleteDocumentPicks(uri string) error
}

// Manager is the extension-side service surface. All inbound operations
// funnel through it under one lock; handles for documents, cells, and
// outputs are monotonic and never reused.
type Manager struct {
	mu sync.Mutex

	logger   logging.Logger
	peer     PeerProxy
	resolver *display.Resolver
	prefs    PrefsStore
	buffers  TextBufferResolver

	providers map[string]ContentProvider
	documents map[string]*Document

	nextDocumentHandle int
	nextCellHandle     int
	nextOutputID       int64

	activeEditorURI string
}

type ManagerOptions struct {
	Logger   logging.Logger
	Peer     PeerProxy
	Resolver *display.Resolver
	Prefs    PrefsStore
	Buffers  TextBufferResolver
}

func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	peer := opts.Peer
	if peer == nil {
		peer = NopPeer{}
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = display.NewResolver(nil, nil, logger)
	}
	m := &Manager{
		logger:             logger,
		peer:               peer,
		resolver:           resolver,
		prefs:              opts.Prefs,
		buffers:            opts.Buffers,
		providers:          map[string]ContentProvider{},
		documents:          map[string]*Document{},
		nextDocumentHandle: 1,
		nextCellHandle:     1,
		nextOutputID:       1,
	}
	m.restoreUserOrder()
	return m
}

func (m *Manager) restoreUserOrder() {
	if m.prefs == nil {
		return
	}
	patterns, err := m.prefs.LoadUserOrder()
	if err != nil {
		m.logger.Warn("prefs_load_failed", logging.F("error", err))
		return
	}
	if len(patterns) > 0 {
		m.resolver.Order().SetUserOrder(patterns)
	}
}

func (m *Manager) Resolver() *display.Resolver {
	return m.resolver
}

// SetPeer swaps the outbound proxy, used when the first presentation surface
// connects.
func (m *Manager) SetPeer(peer PeerProxy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if peer == nil {
		peer = NopPeer{}
	}
	m.peer = peer
	for _, doc := range m.documents {
		doc.peer = peer
	}
}

// RegisterProvider binds a content provider to a view type. A second
// registration for the same view type is rejected.
func (m *Manager) RegisterProvider(viewType string, provider ContentProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	viewType = strings.TrimSpace(viewType)
	if viewType == "" {
		return errors.New("view type is required")
	}
	if provider == nil {
		return errors.New("provider is required")
	}
	if _, ok := m.providers[viewType]; ok {
		return fmt.Errorf("provider already registered for view type %q", viewType)
	}
	m.providers[viewType] = provider
	return nil
}

// ResolveNotebook opens a document for the URI, loading content through the
// view type's provider. Resolving an already-open URI returns the existing
// handle without touching the provider. An unknown view type yields a
// negative handle, not an error.
func (m *Manager) ResolveNotebook(ctx context.Context, viewType, uri string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return -1, errors.New("uri is required")
	}
	if doc, ok := m.documents[uri]; ok {
		return doc.Handle(), nil
	}
	provider, ok := m.providers[strings.TrimSpace(viewType)]
	if !ok {
		m.logger.Warn("resolve_unknown_view_type", logging.F("view_type", viewType))
		return -1, nil
	}
	data, err := provider.ResolveNotebook(ctx, uri)
	if err != nil {
		return -1, fmt.Errorf("resolve notebook %q: %w", uri, err)
	}

	doc := newDocument(m.nextDocumentHandle, viewType, uri, m.peer, m.resolver, m.pickLookupFor(uri), m.logger)
	m.nextDocumentHandle++
	m.documents[uri] = doc

	cells := make([]*Cell, 0, len(data))
	for _, seed := range data {
		cells = append(cells, m.buildCell(seed))
	}
	m.peer.CreateDocument(doc.Handle(), viewType, uri, nil)
	doc.SetCells(cells)
	m.logger.Info("notebook_resolved",
		logging.F("uri", uri),
		logging.F("handle", doc.Handle()),
		logging.F("cells", len(cells)),
	)
	return doc.Handle(), nil
}

// pickLookupFor exposes the persisted mimetype picks for one document, so
// serialization restores the user's choice after a restart.
func (m *Manager) pickLookupFor(uri string) pickLookup {
	if m.prefs == nil {
		return nil
	}
	return func(cellHandle, outputIndex int) (int, bool) {
		index, ok, err := m.prefs.LoadPickedMimeType(uri, cellHandle, outputIndex)
		if err != nil {
			m.logger.Warn("prefs_load_failed", logging.F("error", err))
			return 0, false
		}
		return index, ok
	}
}

func (m *Manager) buildCell(seed CellData) *Cell {
	cell := newCell(m.nextCellHandle, seed.Source, seed.Language, types.CellKind(seed.Kind))
	m.nextCellHandle++
	if len(seed.Outputs) > 0 {
		outputs := make([]*types.Output, 0, len(seed.Outputs))
		for _, data := range seed.Outputs {
			outputs = append(outputs, m.buildOutput(data))
		}
		cell.SetOutputs(outputs)
	}
	return cell
}

func (m *Manager) buildOutput(data OutputData) *types.Output {
	output := &types.Output{
		ID:           m.nextOutputID,
		Kind:         types.OutputKind(data.Kind),
		Text:         data.Text,
		ErrorName:    data.ErrorName,
		ErrorMessage: data.ErrorMessage,
		Traceback:    append([]string(nil), data.Traceback...),
		Data:         cloneStringMap(data.Data),
	}
	m.nextOutputID++
	return output
}

// ExecuteCell asks the document's provider to run one cell. Results arrive
// later through UpdateCellOutputs.
func (m *Manager) ExecuteCell(ctx context.Context, uri string, cellHandle int) error {
	m.mu.Lock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownDocument
	}
	if _, ok := doc.CellByHandle(cellHandle); !ok {
		m.mu.Unlock()
		return ErrUnknownCell
	}
	provider := m.providers[doc.ViewType()]
	m.mu.Unlock()
	if provider == nil {
		return ErrUnknownDocument
	}
	return provider.ExecuteCell(ctx, uri, cellHandle)
}

// UpdateCellOutputs replaces a cell's output list. Providers call this with
// execution results; the diff and peer notification happen inside the cell
// and document wiring.
func (m *Manager) UpdateCellOutputs(uri string, cellHandle int, outputs []OutputData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return ErrUnknownDocument
	}
	cell, ok := doc.CellByHandle(cellHandle)
	if !ok {
		return ErrUnknownCell
	}
	next := make([]*types.Output, 0, len(outputs))
	for _, data := range outputs {
		next = append(next, m.buildOutput(data))
	}
	cell.SetOutputs(next)
	return nil
}

// AppendCellOutputs keeps existing outputs and appends new ones, the common
// case for streaming execution.
func (m *Manager) AppendCellOutputs(uri string, cellHandle int, outputs []OutputData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return ErrUnknownDocument
	}
	cell, ok := doc.CellByHandle(cellHandle)
	if !ok {
		return ErrUnknownCell
	}
	next := cell.Outputs()
	for _, data := range outputs {
		next = append(next, m.buildOutput(data))
	}
	cell.SetOutputs(next)
	return nil
}

// CreateCell inserts an empty cell at index and returns its serialized
// record. Index is clamped to the cell list bounds.
func (m *Manager) CreateCell(uri string, index int, language, kind string) (*types.CellRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return nil, ErrUnknownDocument
	}
	cell := m.buildCell(CellData{Language: language, Kind: kind})
	cells := doc.Cells()
	if index < 0 {
		index = 0
	}
	if index > len(cells) {
		index = len(cells)
	}
	cells = append(cells[:index], append([]*Cell{cell}, cells[index:]...)...)
	doc.SetCells(cells)
	return cell.Record(m.resolver), nil
}

// DeleteCell removes the cell at index. Out-of-range indices return false
// and leave the document untouched.
func (m *Manager) DeleteCell(uri string, index int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return false, ErrUnknownDocument
	}
	cells := doc.Cells()
	if index < 0 || index >= len(cells) {
		return false, nil
	}
	doc.SetCells(append(cells[:index], cells[index+1:]...))
	return true, nil
}

// SaveNotebook asks the provider to persist the document.
func (m *Manager) SaveNotebook(ctx context.Context, uri string) (bool, error) {
	m.mu.Lock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		m.mu.Unlock()
		return false, ErrUnknownDocument
	}
	provider := m.providers[doc.ViewType()]
	m.mu.Unlock()
	if provider == nil {
		return false, ErrUnknownDocument
	}
	return provider.SaveNotebook(ctx, uri)
}

// CloseNotebook tears down a document and its cell subscriptions.
func (m *Manager) CloseNotebook(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	uri = strings.TrimSpace(uri)
	doc, ok := m.documents[uri]
	if !ok {
		return ErrUnknownDocument
	}
	doc.dispose()
	delete(m.documents, uri)
	if m.activeEditorURI == uri {
		m.activeEditorURI = ""
	}
	if m.prefs != nil {
		// Closing discards the document, so its pick overrides go with it;
		// picks survive restarts only for documents that were never closed.
		if err := m.prefs.DeleteDocumentPicks(uri); err != nil {
			m.logger.Warn("prefs_delete_failed", logging.F("error", err))
		}
	}
	return nil
}

// SetActiveEditor records which document currently has editor focus. An
// empty URI clears the active editor.
func (m *Manager) SetActiveEditor(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	uri = strings.TrimSpace(uri)
	if uri == "" {
		m.activeEditorURI = ""
		return nil
	}
	if _, ok := m.documents[uri]; !ok {
		return ErrUnknownDocument
	}
	m.activeEditorURI = uri
	return nil
}

func (m *Manager) ActiveEditor() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeEditorURI
}

// AcceptDisplayOrder installs new mimetype orderings. The user layer is
// persisted; the default layer is process configuration.
func (m *Manager) AcceptDisplayOrder(defaultOrder, userOrder []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if defaultOrder != nil {
		m.resolver.Order().SetDefaultOrder(defaultOrder)
	}
	if userOrder != nil {
		m.resolver.Order().SetUserOrder(userOrder)
		if m.prefs != nil {
			if err := m.prefs.SaveUserOrder(userOrder); err != nil {
				m.logger.Warn("prefs_save_failed", logging.F("error", err))
			}
		}
	}
	return nil
}

// RegisterRenderer adds an output renderer and announces it to the peer.
func (m *Manager) RegisterRenderer(rendererType, displayName string, mimeTypes, preloadAssets []string, render display.RenderFunc) types.RendererHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := m.resolver.Registry().Register(rendererType, displayName, mimeTypes, preloadAssets, render)
	m.peer.RegisterRenderer(&types.RendererInfo{
		Handle:        handle,
		Type:          rendererType,
		DisplayName:   displayName,
		MimeTypes:     append([]string(nil), mimeTypes...),
		PreloadAssets: append([]string(nil), preloadAssets...),
	})
	return handle
}

// UnregisterRenderer removes a renderer. Unknown handles are ignored.
func (m *Manager) UnregisterRenderer(handle types.RendererHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolver.Registry().Unregister(handle) {
		m.peer.UnregisterRenderer(handle)
	}
}

// UpdateLanguages replaces the language list a document's cells may use.
func (m *Manager) UpdateLanguages(uri string, languages []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return ErrUnknownDocument
	}
	doc.SetLanguages(languages)
	return nil
}

// AttachCellTextDocument resolves the live buffer for a cell and attaches
// it. A cancelled or failed resolve skips the attach without error; the cell
// keeps serving its fallback source lines.
func (m *Manager) AttachCellTextDocument(ctx context.Context, uri string, cellHandle int) error {
	m.mu.Lock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownDocument
	}
	cell, ok := doc.CellByHandle(cellHandle)
	if !ok {
		m.mu.Unlock()
		return ErrUnknownCell
	}
	buffers := m.buffers
	m.mu.Unlock()

	if buffers == nil {
		return nil
	}
	buffer, err := buffers.Resolve(ctx, uri, cellHandle)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Debug("buffer_resolve_failed",
				logging.F("uri", uri),
				logging.F("cell", cellHandle),
				logging.F("error", err),
			)
		}
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cell.AttachTextBuffer(buffer)
	return nil
}

// DetachCellTextDocument drops a cell's buffer, folding pending edits back
// into the stored source lines.
func (m *Manager) DetachCellTextDocument(uri string, cellHandle int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return ErrUnknownDocument
	}
	cell, ok := doc.CellByHandle(cellHandle)
	if !ok {
		return ErrUnknownCell
	}
	cell.DetachTextBuffer()
	return nil
}

// PickOutputMimeType switches the picked candidate for one output, rendering
// it lazily if needed, and returns the updated transformed output.
func (m *Manager) PickOutputMimeType(uri string, cellHandle, outputIndex, candidateIndex int) (*types.TransformedOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return nil, ErrUnknownDocument
	}
	cell, ok := doc.CellByHandle(cellHandle)
	if !ok {
		return nil, ErrUnknownCell
	}
	transformed, ok := cell.Transformed(m.resolver, outputIndex)
	if !ok {
		return nil, display.ErrNoCandidate
	}
	if err := m.resolver.Pick(transformed, candidateIndex); err != nil {
		return nil, err
	}
	if m.prefs != nil {
		if err := m.prefs.SavePickedMimeType(uri, cellHandle, outputIndex, candidateIndex); err != nil {
			m.logger.Warn("prefs_save_failed", logging.F("error", err))
		}
	}
	return types.CloneTransformedOutput(transformed), nil
}

// Documents lists open notebooks sorted by handle.
func (m *Manager) Documents() []*types.NotebookInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]*types.NotebookInfo, 0, len(m.documents))
	for _, doc := range m.documents {
		infos = append(infos, doc.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Handle < infos[j].Handle })
	return infos
}

// CellRecords serializes every cell of one document, used for initial-state
// snapshots when a presentation surface connects.
func (m *Manager) CellRecords(uri string) ([]*types.CellRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[strings.TrimSpace(uri)]
	if !ok {
		return nil, ErrUnknownDocument
	}
	return doc.Records(), nil
}

// Snapshot captures every open document with its cells, used to seed a
// freshly connected peer.
func (m *Manager) Snapshot() []*types.DocumentSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshots := make([]*types.DocumentSnapshot, 0, len(m.documents))
	for _, doc := range m.documents {
		snapshots = append(snapshots, &types.DocumentSnapshot{
			Info:  doc.Info(),
			Cells: doc.Records(),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Info.Handle < snapshots[j].Info.Handle })
	return snapshots
}

// Renderers lists registered output renderers.
func (m *Manager) Renderers() []*types.RendererInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolver.Registry().List()
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
