package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"notebook/internal/types"
)

// pickerState is the interactive mimetype picker for one display output.
// Dismissing it changes nothing; selecting a candidate round-trips through
// the daemon so the render happens where the renderer functions live.
type pickerState struct {
	uri         string
	cellHandle  int
	outputIndex int
	candidates  []types.MimeCandidate
	cursor      int
}

func (m *Model) openPicker() {
	doc, cell := m.selection()
	if doc == nil || cell == nil {
		return
	}
	for index, output := range cell.record.Outputs {
		if output == nil || output.Output == nil || !output.Output.IsDisplay() {
			continue
		}
		if len(output.Candidates) < 2 {
			continue
		}
		m.picker = &pickerState{
			uri:         doc.info.URI,
			cellHandle:  cell.record.Handle,
			outputIndex: index,
			candidates:  output.Candidates,
			cursor:      output.PickedIndex,
		}
		return
	}
	m.setStatus("no output with alternative mimetypes", true)
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.picker
	switch msg.String() {
	case "esc", "q":
		m.picker = nil
		return m, nil
	case "j", "down":
		if p.cursor < len(p.candidates)-1 {
			p.cursor++
		}
		return m, nil
	case "k", "up":
		if p.cursor > 0 {
			p.cursor--
		}
		return m, nil
	case "enter":
		return m, pickMimeType(m.client, p.uri, p.cellHandle, p.outputIndex, p.cursor)
	}
	return m, nil
}

func candidateLabel(c types.MimeCandidate) string {
	switch {
	case c.RendererHandle == types.BuiltinRenderer:
		return fmt.Sprintf("%s (builtin)", c.MimeType)
	case c.RendererHandle > 0:
		return fmt.Sprintf("%s (renderer %d)", c.MimeType, c.RendererHandle)
	default:
		return c.MimeType
	}
}
