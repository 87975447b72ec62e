// Package notebook owns the extension-side logical model: documents, cells,
// and their output lists. Every mutation runs through the sequence diff
// engine so downstream peers receive splices, never full snapshots.
package notebook

import (
	"notebook/internal/display"
	"notebook/internal/sequence"
	"notebook/internal/types"
)

// TextBuffer is the live editor buffer a cell can attach to. While attached
// and modified past the attach-time version, the buffer is the cell's source
// of truth for content.
type TextBuffer interface {
	URI() string
	Version() int
	Lines() []string
}

// Cell models one notebook cell. The outputs setter is the sole mutation
// path for outputs: every assignment is diffed against the previous list and
// emitted as splices.
type Cell struct {
	handle      int
	language    string
	kind        types.CellKind
	sourceLines []string

	outputs   []*types.Output
	outputIDs map[int64]struct{}

	buffer        TextBuffer
	attachVersion int

	transformed []*types.TransformedOutput

	listeners map[int]func([]sequence.Splice[*types.Output])
	nextSub   int
}

func newCell(handle int, source []string, language string, kind types.CellKind) *Cell {
	return &Cell{
		handle:      handle,
		language:    language,
		kind:        kind,
		sourceLines: append([]string(nil), source...),
		outputIDs:   map[int64]struct{}{},
		listeners:   map[int]func([]sequence.Splice[*types.Output]){},
	}
}

func (c *Cell) Handle() int { return c.handle }

func (c *Cell) Language() string { return c.language }

func (c *Cell) Kind() types.CellKind { return c.kind }

// Content returns the cell's current source lines. An attached buffer that
// has advanced past the attach-time version wins over the fallback lines.
func (c *Cell) Content() []string {
	if c.buffer != nil && c.buffer.Version() != c.attachVersion {
		return append([]string(nil), c.buffer.Lines()...)
	}
	return append([]string(nil), c.sourceLines...)
}

// Dirty reports whether an attached buffer holds edits the fallback source
// lines have not seen.
func (c *Cell) Dirty() bool {
	return c.buffer != nil && c.buffer.Version() != c.attachVersion
}

// AttachTextBuffer switches the cell's source of truth to a live buffer.
func (c *Cell) AttachTextBuffer(buffer TextBuffer) {
	if buffer == nil {
		return
	}
	c.buffer = buffer
	c.attachVersion = buffer.Version()
}

// DetachTextBuffer reconciles any buffer edits back into the fallback source
// lines and drops the buffer reference.
func (c *Cell) DetachTextBuffer() {
	if c.buffer == nil {
		return
	}
	if c.buffer.Version() != c.attachVersion {
		c.sourceLines = append([]string(nil), c.buffer.Lines()...)
	}
	c.buffer = nil
	c.attachVersion = 0
}

func (c *Cell) Outputs() []*types.Output {
	return append([]*types.Output(nil), c.outputs...)
}

// SetOutputs replaces the output list, diffing against the previous list by
// output identity and notifying subscribers with the resulting splices.
// Identical lists produce no notification.
func (c *Cell) SetOutputs(outputs []*types.Output) []sequence.Splice[*types.Output] {
	splices := sequence.Diff(c.outputs, outputs, outputID, func(id int64) bool {
		_, ok := c.outputIDs[id]
		return ok
	})
	c.outputs = append([]*types.Output(nil), outputs...)
	c.outputIDs = make(map[int64]struct{}, len(outputs))
	for _, output := range outputs {
		if output != nil {
			c.outputIDs[output.ID] = struct{}{}
		}
	}
	c.transformed = nil
	if len(splices) > 0 {
		for _, listener := range c.listeners {
			listener(splices)
		}
	}
	return splices
}

// OnOutputsSpliced subscribes to output splices. The returned func removes
// the subscription; it must be called when the cell leaves its document or
// the stale listener keeps forwarding.
func (c *Cell) OnOutputsSpliced(listener func([]sequence.Splice[*types.Output])) func() {
	if listener == nil {
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = listener
	return func() {
		delete(c.listeners, id)
	}
}

// Record serializes the cell for transport, resolving display outputs into
// candidate lists. The transformed outputs are cached on the cell so later
// mimetype picks mutate the same instances the peer has seen.
func (c *Cell) Record(resolver *display.Resolver) *types.CellRecord {
	transformed := make([]*types.TransformedOutput, 0, len(c.outputs))
	for _, output := range c.outputs {
		transformed = append(transformed, resolver.Resolve(output))
	}
	c.transformed = transformed
	return &types.CellRecord{
		Handle:   c.handle,
		Source:   c.Content(),
		Language: c.language,
		Kind:     c.kind,
		Outputs:  transformed,
		Dirty:    c.Dirty(),
	}
}

// Transformed returns the cached transformed output at index, resolving the
// cell first if no serialization happened yet.
func (c *Cell) Transformed(resolver *display.Resolver, index int) (*types.TransformedOutput, bool) {
	if c.transformed == nil {
		c.Record(resolver)
	}
	if index < 0 || index >= len(c.transformed) {
		return nil, false
	}
	return c.transformed[index], true
}

func outputID(o *types.Output) int64 {
	if o == nil {
		return 0
	}
	return o.ID
}
