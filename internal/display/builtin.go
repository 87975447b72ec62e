package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"notebook/internal/types"
)

// DefaultRenderWidth is used when no presentation surface has reported a
// width yet.
const DefaultRenderWidth = 80

var coreMimeTypes = map[string]struct{}{
	"text/plain":       {},
	"text/markdown":    {},
	"text/html":        {},
	"application/json": {},
}

// CoreSupports reports whether the core can render a mimetype natively,
// without any registered renderer.
func CoreSupports(mimeType string) bool {
	_, ok := coreMimeTypes[strings.TrimSpace(mimeType)]
	return ok
}

// RenderCore renders a core-supported mimetype at the default width. Unknown
// mimetypes fall back to the raw content.
func RenderCore(mimeType, content string) string {
	return RenderCoreWidth(mimeType, content, DefaultRenderWidth)
}

func RenderCoreWidth(mimeType, content string, width int) string {
	if width <= 0 {
		width = DefaultRenderWidth
	}
	switch strings.TrimSpace(mimeType) {
	case "text/markdown":
		return renderMarkdown(content, width)
	case "application/json":
		return renderJSON(content)
	case "text/html":
		// Terminal surfaces get the raw markup; a richer renderer can be
		// registered for text/html to override this.
		return strings.TrimRight(content, "\n")
	default:
		return strings.TrimRight(content, "\n")
	}
}

var (
	markdownMu        sync.Mutex
	markdownRenderers = map[int]*glamour.TermRenderer{}
)

func renderMarkdown(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	r := markdownRenderer(width)
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = strings.TrimRight(out, "\n")
	out = xansi.Hardwrap(out, width, true)
	return strings.TrimRight(out, "\n")
}

func markdownRenderer(width int) *glamour.TermRenderer {
	markdownMu.Lock()
	defer markdownMu.Unlock()
	if r, ok := markdownRenderers[width]; ok && r != nil {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	markdownRenderers[width] = r
	return r
}

func renderJSON(content string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(content)), "", "  "); err != nil {
		return strings.TrimRight(content, "\n")
	}
	return buf.String()
}

var (
	errorNameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	errorTraceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Faint(true)
)

// RenderStream renders a stream output payload.
func RenderStream(text string) string {
	return strings.TrimRight(text, "\n")
}

// RenderError renders an error output payload with the name highlighted and
// the traceback dimmed.
func RenderError(output *types.Output) string {
	if output == nil {
		return ""
	}
	header := strings.TrimSpace(output.ErrorName)
	if msg := strings.TrimSpace(output.ErrorMessage); msg != "" {
		if header != "" {
			header += ": "
		}
		header += msg
	}
	lines := make([]string, 0, len(output.Traceback)+1)
	if header != "" {
		lines = append(lines, errorNameStyle.Render(header))
	}
	for _, frame := range output.Traceback {
		lines = append(lines, errorTraceStyle.Render(strings.TrimRight(frame, "\n")))
	}
	return strings.Join(lines, "\n")
}
