package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"notebook/internal/types"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Faint(true)
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	dirtyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pickerStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	cursorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.picker != nil {
		b.WriteString(m.renderPicker())
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Model) renderHeader() string {
	doc := m.currentDocument()
	if doc == nil {
		if m.connected {
			return titleStyle.Render("notebook") + dimStyle.Render("  no open notebooks")
		}
		return titleStyle.Render("notebook") + dimStyle.Render("  connecting...")
	}
	header := titleStyle.Render(doc.info.URI)
	if len(m.order) > 1 {
		header += dimStyle.Render(fmt.Sprintf("  [%d/%d]", m.activeDoc+1, len(m.order)))
	}
	return runewidth.Truncate(header, m.width, "…")
}

func (m *Model) renderContent() string {
	doc := m.currentDocument()
	if doc == nil {
		return ""
	}
	var b strings.Builder
	for index, cell := range doc.cells {
		b.WriteString(m.renderCell(index, cell))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderCell(index int, cell *cellState) string {
	marker := "  "
	style := dimStyle
	if index == m.selectedCell {
		marker = "> "
		style = selectedStyle
	}
	label := fmt.Sprintf("[%d] %s", cell.record.Handle, cell.record.Kind)
	if cell.record.Language != "" {
		label += " (" + cell.record.Language + ")"
	}
	if cell.record.Dirty {
		label += dirtyStyle.Render(" *")
	}

	var b strings.Builder
	b.WriteString(marker + style.Render(label) + "\n")
	for _, line := range cell.record.Source {
		b.WriteString("    " + line + "\n")
	}
	for i, element := range cell.presenter.Elements() {
		lines := element.Lines()
		if len(lines) == 0 {
			continue
		}
		summary := ""
		if i < len(cell.record.Outputs) {
			summary = " " + outputSummary(cell.record.Outputs[i])
		}
		b.WriteString("    " + dimStyle.Render(strings.Repeat("-", 4)+summary) + "\n")
		for _, line := range lines {
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}

func (m *Model) renderPicker() string {
	p := m.picker
	var b strings.Builder
	b.WriteString(titleStyle.Render("pick output mimetype") + "\n\n")
	for i, candidate := range p.candidates {
		cursor := "  "
		label := candidateLabel(candidate)
		if i == p.cursor {
			cursor = cursorStyle.Render("> ")
			label = selectedStyle.Render(label)
		}
		b.WriteString(cursor + label + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("enter: pick  esc: dismiss"))
	return pickerStyle.Render(b.String())
}

func (m *Model) renderStatus() string {
	if m.statusText != "" {
		if m.statusIsErr {
			return errStatusStyle.Render(m.statusText)
		}
		return infoStatusStyle.Render(m.statusText)
	}
	help := "j/k: cells  e: run  s: save  p: mimetype  y: copy  tab: notebook  q: quit"
	if !m.connected {
		help = "disconnected from daemon"
	}
	return dimStyle.Render(runewidth.Truncate(help, m.width, "…"))
}

func outputSummary(output *types.TransformedOutput) string {
	if output == nil || output.Output == nil {
		return ""
	}
	switch output.Output.Kind {
	case types.OutputKindStream:
		return "stream"
	case types.OutputKindError:
		return "error"
	default:
		if candidate, ok := output.Picked(); ok {
			return candidate.MimeType
		}
		return "display"
	}
}
