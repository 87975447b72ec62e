package display

import (
	"errors"

	"notebook/internal/logging"
	"notebook/internal/types"
)

var ErrNoCandidate = errors.New("no candidate at index")

// Resolver computes, for a display output, the ordered candidate list of
// (mimetype, renderer) pairings and performs first-choice rendering. Only the
// top candidate is rendered eagerly; the rest stay unresolved until picked.
type Resolver struct {
	order       *Order
	registry    *Registry
	logger      logging.Logger
	renderWidth int
}

func NewResolver(order *Order, registry *Registry, logger logging.Logger) *Resolver {
	if order == nil {
		order = NewOrder(nil)
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Resolver{order: order, registry: registry, logger: logger}
}

// SetRenderWidth sets the wrap width used for core mimetype rendering.
// Widths of zero or less keep the default.
func (r *Resolver) SetRenderWidth(width int) {
	r.renderWidth = width
}

func (r *Resolver) renderCore(mimeType, content string) string {
	width := r.renderWidth
	if width <= 0 {
		width = DefaultRenderWidth
	}
	return RenderCoreWidth(mimeType, content, width)
}

func (r *Resolver) Order() *Order {
	return r.order
}

func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve builds the candidate list for a display output. Non-display
// outputs pass through untransformed; the presentation side renders stream
// and error payloads directly.
func (r *Resolver) Resolve(output *types.Output) *types.TransformedOutput {
	transformed := &types.TransformedOutput{Output: output}
	if !output.IsDisplay() {
		return transformed
	}
	for _, mimeType := range r.order.Sort(output.MimeTypes()) {
		content := output.Data[mimeType]
		matched := r.registry.FindBestMatched(mimeType)
		if len(matched) == 0 {
			// No viable renderer for this mimetype; the presentation side
			// may still fall back to a builtin for core mimetypes.
			transformed.Candidates = append(transformed.Candidates, types.MimeCandidate{MimeType: mimeType})
			continue
		}
		rendered := r.invoke(matched[0], mimeType, content)
		transformed.Candidates = append(transformed.Candidates, types.MimeCandidate{
			MimeType:        mimeType,
			IsResolved:      true,
			RendererHandle:  matched[0].Handle,
			RenderedContent: rendered,
		})
		for _, reg := range matched[1:] {
			transformed.Candidates = append(transformed.Candidates, types.MimeCandidate{
				MimeType:       mimeType,
				RendererHandle: reg.Handle,
			})
		}
		if CoreSupports(mimeType) {
			transformed.Candidates = append(transformed.Candidates, types.MimeCandidate{
				MimeType:       mimeType,
				RendererHandle: types.BuiltinRenderer,
			})
		}
	}
	return transformed
}

// Pick switches the picked candidate, rendering it on demand if it was still
// unresolved. Exactly one render invocation happens per first pick of a
// candidate; already-resolved candidates are not re-rendered.
func (r *Resolver) Pick(transformed *types.TransformedOutput, index int) error {
	if transformed == nil || index < 0 || index >= len(transformed.Candidates) {
		return ErrNoCandidate
	}
	candidate := &transformed.Candidates[index]
	if !candidate.IsResolved {
		content := ""
		if transformed.Output != nil {
			content = transformed.Output.Data[candidate.MimeType]
		}
		switch {
		case candidate.RendererHandle == types.BuiltinRenderer:
			candidate.RenderedContent = r.renderCore(candidate.MimeType, content)
		case candidate.RendererHandle > 0:
			reg, ok := r.registry.Get(candidate.RendererHandle)
			if !ok {
				return ErrNoCandidate
			}
			candidate.RenderedContent = r.invoke(reg, candidate.MimeType, content)
		default:
			if !CoreSupports(candidate.MimeType) {
				return ErrNoCandidate
			}
			candidate.RenderedContent = r.renderCore(candidate.MimeType, content)
		}
		candidate.IsResolved = true
	}
	transformed.PickedIndex = index
	return nil
}

func (r *Resolver) invoke(reg *Registration, mimeType, content string) string {
	if reg == nil || reg.Render == nil {
		return ""
	}
	rendered, err := reg.Render(mimeType, content)
	if err != nil {
		r.logger.Debug("render_failed",
			logging.F("renderer", int(reg.Handle)),
			logging.F("mime_type", mimeType),
			logging.F("error", err),
		)
		return ""
	}
	return rendered
}

// UsedRendererHandles collects the renderer handles that ended up resolved in
// a batch of transformed outputs, so the remote side can preload their assets
// before mounting.
func UsedRendererHandles(outputs []*types.TransformedOutput) []types.RendererHandle {
	seen := map[types.RendererHandle]struct{}{}
	var out []types.RendererHandle
	for _, transformed := range outputs {
		if transformed == nil {
			continue
		}
		for _, candidate := range transformed.Candidates {
			if !candidate.IsResolved || candidate.RendererHandle <= 0 {
				continue
			}
			if _, ok := seen[candidate.RendererHandle]; ok {
				continue
			}
			seen[candidate.RendererHandle] = struct{}{}
			out = append(out, candidate.RendererHandle)
		}
	}
	return out
}
