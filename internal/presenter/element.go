// Package presenter is the presentation-side consumer of resolved outputs.
// It tracks one screen element per output, applies splices while preserving
// order, and keeps per-output height accounting for the surrounding layout.
package presenter

import (
	"strings"

	"notebook/internal/display"
	"notebook/internal/types"
)

type ElementState int

const (
	StateUnrendered ElementState = iota
	StateRenderedStatic
	StateRenderedDynamic
	StateRenderedSurface
)

// SizeObserver reports live height changes for one mounted element. Static
// elements never get one; embedded surfaces track height through their own
// channel and are excluded from observation.
type SizeObserver interface {
	StartObserving(onHeight func(height int))
	Dispose()
}

// SizeObserverFactory builds an observer for a dynamic element. A nil
// factory, or a nil observer from it, downgrades the element to static.
type SizeObserverFactory func(outputID int64) SizeObserver

// Element is the presentation state for one output.
type Element struct {
	output   *types.TransformedOutput
	state    ElementState
	lines    []string
	height   int
	observer SizeObserver
}

func newElement(output *types.TransformedOutput) *Element {
	return &Element{output: output, state: StateUnrendered}
}

func (e *Element) State() ElementState { return e.state }

func (e *Element) Height() int { return e.height }

func (e *Element) Lines() []string {
	return append([]string(nil), e.lines...)
}

func (e *Element) outputID() int64 {
	if e.output == nil || e.output.Output == nil {
		return 0
	}
	return e.output.Output.ID
}

// render produces the element's lines from the picked candidate. An output
// nothing could render ends up at zero height, a degraded outcome rather
// than an error.
func (e *Element) render(width int) {
	e.lines = nil
	if e.output == nil || e.output.Output == nil {
		return
	}
	out := e.output.Output
	switch out.Kind {
	case types.OutputKindStream:
		e.lines = splitLines(display.RenderStream(out.Text))
	case types.OutputKindError:
		e.lines = splitLines(display.RenderError(out))
	case types.OutputKindDisplay:
		candidate, ok := e.output.Picked()
		if !ok || !candidate.IsResolved {
			return
		}
		content := candidate.RenderedContent
		if candidate.RendererHandle == types.BuiltinRenderer || candidate.RendererHandle == 0 {
			content = display.RenderCoreWidth(candidate.MimeType, out.Data[candidate.MimeType], width)
		}
		e.lines = splitLines(content)
	}
}

func (e *Element) teardown() {
	if e.observer != nil {
		e.observer.Dispose()
		e.observer = nil
	}
	e.state = StateUnrendered
	e.lines = nil
	e.height = 0
}

func splitLines(content string) []string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
