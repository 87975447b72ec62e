package presenter

import (
	"notebook/internal/logging"
	"notebook/internal/types"
)

// Options configures a cell presenter.
type Options struct {
	Width     int
	Observers SizeObserverFactory
	// IsSurface marks renderer handles whose elements manage their own
	// drawing region and height channel.
	IsSurface func(types.RendererHandle) bool
	// Relayout is called whenever the cell's total output height changes.
	Relayout func(totalHeight int)
	Logger   logging.Logger
}

// CellPresenter owns the ordered output elements of one cell on screen.
type CellPresenter struct {
	cellHandle int
	width      int
	elements   []*Element
	heights    map[int64]int
	observers  SizeObserverFactory
	isSurface  func(types.RendererHandle) bool
	relayout   func(totalHeight int)
	logger     logging.Logger
}

func NewCellPresenter(cellHandle int, opts Options) *CellPresenter {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &CellPresenter{
		cellHandle: cellHandle,
		width:      width,
		heights:    map[int64]int{},
		observers:  opts.Observers,
		isSurface:  opts.IsSurface,
		relayout:   opts.Relayout,
		logger:     logger,
	}
}

func (p *CellPresenter) Elements() []*Element {
	return append([]*Element(nil), p.elements...)
}

func (p *CellPresenter) TotalHeight() int {
	total := 0
	for _, height := range p.heights {
		total += height
	}
	return total
}

// TrackedHeight returns the cached height for one output.
func (p *CellPresenter) TrackedHeight(outputID int64) (int, bool) {
	height, ok := p.heights[outputID]
	return height, ok
}

// SetOutputs replaces the whole output list, used for initial state.
func (p *CellPresenter) SetOutputs(outputs []*types.TransformedOutput) {
	for _, element := range p.elements {
		element.teardown()
	}
	p.elements = nil
	p.heights = map[int64]int{}
	for _, output := range outputs {
		element := newElement(output)
		p.elements = append(p.elements, element)
		p.mount(element)
	}
	p.notifyRelayout()
}

// ApplyOutputSplices applies incremental splices in order. Removed rows are
// pre-shrunk to zero height before their elements leave the screen, then
// surviving elements are reused in place and new outputs mount at the spliced
// position so ordering is preserved.
func (p *CellPresenter) ApplyOutputSplices(splices []*types.OutputSplice) {
	// Pre-shrink pass over original coordinates.
	for _, splice := range splices {
		for i := 0; i < splice.DeleteCount; i++ {
			index := splice.Start + i
			if index < 0 || index >= len(p.elements) {
				continue
			}
			id := p.elements[index].outputID()
			if p.heights[id] != 0 {
				p.heights[id] = 0
			}
		}
	}
	p.notifyRelayout()

	offset := 0
	for _, splice := range splices {
		start := splice.Start + offset
		if start < 0 {
			start = 0
		}
		if start > len(p.elements) {
			start = len(p.elements)
		}
		end := start + splice.DeleteCount
		if end > len(p.elements) {
			end = len(p.elements)
		}
		for _, element := range p.elements[start:end] {
			delete(p.heights, element.outputID())
			element.teardown()
		}
		inserted := make([]*Element, 0, len(splice.Outputs))
		for _, output := range splice.Outputs {
			inserted = append(inserted, newElement(output))
		}
		p.elements = append(p.elements[:start], append(inserted, p.elements[end:]...)...)
		for _, element := range inserted {
			p.mount(element)
		}
		offset += len(splice.Outputs) - (end - start)
	}
	p.notifyRelayout()
}

// ApplyPick replaces one output's transformed state after the user picked a
// different candidate. The old element is torn down, observer included, and
// the replacement renders at the same logical position.
func (p *CellPresenter) ApplyPick(outputIndex int, transformed *types.TransformedOutput) bool {
	if outputIndex < 0 || outputIndex >= len(p.elements) {
		return false
	}
	old := p.elements[outputIndex]
	delete(p.heights, old.outputID())
	old.teardown()

	element := newElement(transformed)
	p.elements[outputIndex] = element
	p.mount(element)
	p.notifyRelayout()
	return true
}

// SetWidth re-renders every element at a new wrap width.
func (p *CellPresenter) SetWidth(width int) {
	if width <= 0 || width == p.width {
		return
	}
	p.width = width
	for _, element := range p.elements {
		if element.state == StateRenderedSurface {
			// Surfaces redraw themselves; their height channel reports any
			// change.
			continue
		}
		element.render(p.width)
		p.setHeight(element, len(element.lines))
	}
	p.notifyRelayout()
}

func (p *CellPresenter) mount(element *Element) {
	element.render(p.width)
	id := element.outputID()

	handle := types.RendererHandle(0)
	if element.output != nil {
		if candidate, ok := element.output.Picked(); ok {
			handle = candidate.RendererHandle
		}
	}

	switch {
	case p.isSurface != nil && handle > 0 && p.isSurface(handle):
		element.state = StateRenderedSurface
		element.height = len(element.lines)
	case handle > 0 && p.observers != nil:
		observer := p.observers(id)
		if observer == nil {
			element.state = StateRenderedStatic
			element.height = len(element.lines)
			break
		}
		element.state = StateRenderedDynamic
		element.height = len(element.lines)
		element.observer = observer
		observer.StartObserving(func(height int) {
			p.observedHeight(element, height)
		})
	default:
		element.state = StateRenderedStatic
		element.height = len(element.lines)
	}
	p.heights[id] = element.height

	if element.height == 0 {
		p.logger.Debug("output_zero_height",
			logging.F("cell", p.cellHandle),
			logging.F("output", id),
		)
	}
}

func (p *CellPresenter) observedHeight(element *Element, height int) {
	if height < 0 || height == element.height {
		return
	}
	element.height = height
	p.setHeight(element, height)
	p.notifyRelayout()
}

func (p *CellPresenter) setHeight(element *Element, height int) {
	element.height = height
	p.heights[element.outputID()] = height
}

func (p *CellPresenter) notifyRelayout() {
	if p.relayout != nil {
		p.relayout(p.TotalHeight())
	}
}
