// Package app is the terminal notebook viewer. It mirrors the daemon's model
// through the websocket sync stream and renders cells with their resolved
// outputs, letting the user execute cells and re-pick output mimetypes.
package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"notebook/internal/client"
	"notebook/internal/remote"
	"notebook/internal/store"
	"notebook/internal/types"
)

type Model struct {
	client *client.Client
	stream *client.SyncStream

	documents map[string]*documentState
	order     []string
	renderers map[types.RendererHandle]*types.RendererInfo

	activeDoc    int
	selectedCell int

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	picker *pickerState

	// Persisted viewer position, held until the matching document arrives.
	pendingState *store.ViewerState

	statusText  string
	statusIsErr bool

	connected bool
}

func New(c *client.Client) *Model {
	return &Model{
		client:    c,
		documents: map[string]*documentState{},
		renderers: map[types.RendererHandle]*types.RendererInfo{},
		width:     80,
	}
}

func (m *Model) Init() tea.Cmd {
	return connectStream(m.client)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := msg.Height - 3
		if contentHeight < 1 {
			contentHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		for _, doc := range m.documents {
			doc.setWidth(msg.Width - 4)
		}
		m.refreshViewport()
		return m, nil

	case streamConnectedMsg:
		m.stream = msg.stream
		m.connected = true
		return m, tea.Batch(waitForSync(m.stream), loadViewerState(m.client))

	case streamClosedMsg:
		m.connected = false
		m.stream = nil
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus("disconnected", true)
		}
		return m, tea.Batch(clearStatusLater(), reconnectLater())

	case reconnectMsg:
		if m.connected {
			return m, nil
		}
		return m, connectStream(m.client)

	case syncMsg:
		m.applySync(msg.message)
		m.applyPendingViewerState()
		m.refreshViewport()
		if m.stream == nil {
			return m, nil
		}
		return m, waitForSync(m.stream)

	case viewerStateMsg:
		m.pendingState = msg.state
		m.applyPendingViewerState()
		m.refreshViewport()
		return m, nil

	case pickAppliedMsg:
		if doc, ok := m.documents[msg.uri]; ok {
			doc.applyPick(msg.cellHandle, msg.outputIndex, msg.transformed)
		}
		m.picker = nil
		m.refreshViewport()
		return m, nil

	case statusMsg:
		m.setStatus(msg.text, msg.isErr)
		return m, clearStatusLater()

	case clearStatusMsg:
		m.statusText = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker != nil {
		return m.handlePickerKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		if m.stream != nil {
			_ = m.stream.Close()
		}
		if doc := m.currentDocument(); doc != nil {
			state := &store.ViewerState{
				LastURI:      doc.info.URI,
				ScrollOffset: m.viewport.YOffset,
				SelectedCell: m.selectedCell,
			}
			return m, tea.Sequence(saveViewerState(m.client, state), tea.Quit)
		}
		return m, tea.Quit
	case "tab":
		if len(m.order) > 1 {
			m.activeDoc = (m.activeDoc + 1) % len(m.order)
			m.selectedCell = 0
			m.refreshViewport()
		}
		return m, nil
	case "j", "down":
		doc := m.currentDocument()
		if doc != nil && m.selectedCell < len(doc.cells)-1 {
			m.selectedCell++
			m.refreshViewport()
		}
		return m, nil
	case "k", "up":
		if m.selectedCell > 0 {
			m.selectedCell--
			m.refreshViewport()
		}
		return m, nil
	case "ctrl+d":
		m.viewport.HalfViewDown()
		return m, nil
	case "ctrl+u":
		m.viewport.HalfViewUp()
		return m, nil
	case "e", "enter":
		doc, cell := m.selection()
		if doc == nil || cell == nil {
			return m, nil
		}
		if cell.record.Kind != types.CellKindCode {
			m.setStatus("not a code cell", true)
			return m, clearStatusLater()
		}
		return m, executeCell(m.client, doc.info.URI, cell.record.Handle)
	case "s":
		doc := m.currentDocument()
		if doc == nil {
			return m, nil
		}
		return m, saveNotebook(m.client, doc.info.URI)
	case "y":
		_, cell := m.selection()
		if cell == nil {
			return m, nil
		}
		m.copyWithStatus(strings.Join(cell.record.Source, "\n"), "source copied")
		return m, clearStatusLater()
	case "p":
		m.openPicker()
		return m, nil
	}
	return m, nil
}

func (m *Model) applySync(message *remote.Message) {
	if message == nil {
		return
	}
	switch message.Type {
	case remote.MessageSnapshot:
		m.documents = map[string]*documentState{}
		m.order = nil
		for _, snapshot := range message.Snapshot {
			if snapshot == nil || snapshot.Info == nil {
				continue
			}
			m.documents[snapshot.Info.URI] = newDocumentState(snapshot.Info, snapshot.Cells, m.contentWidth())
			m.order = append(m.order, snapshot.Info.URI)
		}
		m.clampSelection()
	case remote.MessageCreateDocument:
		payload := message.CreateDocument
		if payload == nil {
			return
		}
		if _, ok := m.documents[payload.URI]; ok {
			return
		}
		info := &types.NotebookInfo{Handle: payload.Handle, ViewType: payload.ViewType, URI: payload.URI}
		m.documents[payload.URI] = newDocumentState(info, payload.Cells, m.contentWidth())
		m.order = append(m.order, payload.URI)
	case remote.MessageSpliceCells:
		if payload := message.SpliceCells; payload != nil {
			if doc, ok := m.documents[payload.URI]; ok {
				doc.applyCellSplices(payload)
				m.clampSelection()
			}
		}
	case remote.MessageSpliceCellOutputs:
		if payload := message.SpliceCellOutputs; payload != nil {
			if doc, ok := m.documents[payload.URI]; ok {
				doc.applyOutputSplices(payload)
			}
		}
	case remote.MessageRegisterRenderer:
		if info := message.RegisterRenderer; info != nil {
			m.renderers[info.Handle] = info
		}
	case remote.MessageUnregisterRenderer:
		if payload := message.UnregisterRenderer; payload != nil {
			delete(m.renderers, payload.Handle)
		}
	case remote.MessageUpdateLanguages:
		if payload := message.UpdateLanguages; payload != nil {
			if doc, ok := m.documents[payload.URI]; ok {
				doc.info.Languages = payload.Languages
			}
		}
	}
}

func (m *Model) currentDocument() *documentState {
	if m.activeDoc < 0 || m.activeDoc >= len(m.order) {
		return nil
	}
	return m.documents[m.order[m.activeDoc]]
}

func (m *Model) selection() (*documentState, *cellState) {
	doc := m.currentDocument()
	if doc == nil || m.selectedCell < 0 || m.selectedCell >= len(doc.cells) {
		return doc, nil
	}
	return doc, doc.cells[m.selectedCell]
}

func (m *Model) clampSelection() {
	if m.activeDoc >= len(m.order) {
		m.activeDoc = len(m.order) - 1
	}
	if m.activeDoc < 0 {
		m.activeDoc = 0
	}
	doc := m.currentDocument()
	if doc == nil {
		m.selectedCell = 0
		return
	}
	if m.selectedCell >= len(doc.cells) {
		m.selectedCell = len(doc.cells) - 1
	}
	if m.selectedCell < 0 {
		m.selectedCell = 0
	}
}

// applyPendingViewerState restores the persisted position once the document
// it points at is present. State for a document that never shows up again is
// simply never applied.
func (m *Model) applyPendingViewerState() {
	state := m.pendingState
	if state == nil || state.LastURI == "" {
		m.pendingState = nil
		return
	}
	for i, uri := range m.order {
		if uri != state.LastURI {
			continue
		}
		m.activeDoc = i
		m.selectedCell = state.SelectedCell
		m.clampSelection()
		if m.ready {
			m.refreshViewport()
			m.viewport.SetYOffset(state.ScrollOffset)
		}
		m.pendingState = nil
		return
	}
}

func (m *Model) contentWidth() int {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return width
}

func (m *Model) setStatus(text string, isErr bool) {
	m.statusText = text
	m.statusIsErr = isErr
}

func (m *Model) copyWithStatus(text, success string) {
	if err := copyTextToClipboard(text); err != nil {
		m.setStatus("copy failed: "+err.Error(), true)
		return
	}
	m.setStatus(success, false)
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderContent())
}
