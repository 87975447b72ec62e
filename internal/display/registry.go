package display

import (
	"strings"

	"notebook/internal/types"
)

// RenderFunc renders raw output content for one mimetype into terminal-ready
// text. An error means the renderer produced nothing usable; the output is
// then shown at zero height rather than failing the splice.
type RenderFunc func(mimeType, content string) (string, error)

type Registration struct {
	Handle      types.RendererHandle
	Type        string
	DisplayName string
	MimeTypes   []string
	Preloads    []string
	Render      RenderFunc
}

// Registry maps renderer handles to registrations. Handles are assigned
// monotonically and never reused; match order among renderers for the same
// mimetype is registration order.
type Registry struct {
	nextHandle types.RendererHandle
	order      []types.RendererHandle
	byHandle   map[types.RendererHandle]*Registration
}

func NewRegistry() *Registry {
	return &Registry{
		nextHandle: 1,
		byHandle:   map[types.RendererHandle]*Registration{},
	}
}

func (r *Registry) Register(rendererType, displayName string, mimeTypes, preloads []string, render RenderFunc) types.RendererHandle {
	handle := r.nextHandle
	r.nextHandle++
	r.byHandle[handle] = &Registration{
		Handle:      handle,
		Type:        strings.TrimSpace(rendererType),
		DisplayName: strings.TrimSpace(displayName),
		MimeTypes:   normalizePatterns(mimeTypes),
		Preloads:    append([]string(nil), preloads...),
		Render:      render,
	}
	r.order = append(r.order, handle)
	return handle
}

func (r *Registry) Unregister(handle types.RendererHandle) bool {
	if _, ok := r.byHandle[handle]; !ok {
		return false
	}
	delete(r.byHandle, handle)
	for i, h := range r.order {
		if h == handle {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) Get(handle types.RendererHandle) (*Registration, bool) {
	reg, ok := r.byHandle[handle]
	return reg, ok
}

// FindBestMatched returns every registration whose mimetype filter matches,
// in registration order; the first entry is the preferred renderer.
func (r *Registry) FindBestMatched(mimeType string) []*Registration {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return nil
	}
	var out []*Registration
	for _, handle := range r.order {
		reg := r.byHandle[handle]
		if reg == nil {
			continue
		}
		for _, pattern := range reg.MimeTypes {
			if matchMime(pattern, mimeType) {
				out = append(out, reg)
				break
			}
		}
	}
	return out
}

func (r *Registry) List() []*types.RendererInfo {
	out := make([]*types.RendererInfo, 0, len(r.order))
	for _, handle := range r.order {
		reg := r.byHandle[handle]
		if reg == nil {
			continue
		}
		out = append(out, &types.RendererInfo{
			Handle:        reg.Handle,
			Type:          reg.Type,
			DisplayName:   reg.DisplayName,
			MimeTypes:     append([]string(nil), reg.MimeTypes...),
			PreloadAssets: append([]string(nil), reg.Preloads...),
		})
	}
	return out
}
