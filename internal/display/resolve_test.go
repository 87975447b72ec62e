package display

import (
	"testing"

	"notebook/internal/types"
)

func displayOutput(id int64, data map[string]string) *types.Output {
	return &types.Output{ID: id, Kind: types.OutputKindDisplay, Data: data}
}

func TestResolvePrefersUserOrderedMimetype(t *testing.T) {
	order := NewOrder([]string{"text/plain"})
	order.SetUserOrder([]string{"image/*"})
	registry := NewRegistry()
	rendered := 0
	registry.Register("png", "PNG", []string{"image/png"}, nil, func(mimeType, content string) (string, error) {
		rendered++
		return "<png:" + content + ">", nil
	})
	resolver := NewResolver(order, registry, nil)

	got := resolver.Resolve(displayOutput(1, map[string]string{
		"text/plain": "x",
		"image/png":  "y",
	}))

	picked, ok := got.Picked()
	if !ok {
		t.Fatalf("no picked candidate: %#v", got)
	}
	if picked.MimeType != "image/png" || !picked.IsResolved {
		t.Fatalf("picked candidate = %#v, want resolved image/png", picked)
	}
	if picked.RenderedContent != "<png:y>" {
		t.Fatalf("unexpected rendered content: %q", picked.RenderedContent)
	}
	if rendered != 1 {
		t.Fatalf("render invocations = %d, want 1 (eager top choice only)", rendered)
	}
}

func TestResolveCandidateShapePerMimetype(t *testing.T) {
	order := NewOrder([]string{"text/plain", "application/vnd.custom"})
	registry := NewRegistry()
	first := registry.Register("custom", "A", []string{"application/vnd.custom"}, nil, func(string, string) (string, error) {
		return "a", nil
	})
	second := registry.Register("custom", "B", []string{"application/*"}, nil, func(string, string) (string, error) {
		return "b", nil
	})
	resolver := NewResolver(order, registry, nil)

	got := resolver.Resolve(displayOutput(1, map[string]string{
		"text/plain":             "p",
		"application/vnd.custom": "c",
	}))

	// text/plain ranks first: no registered renderer matches, so it yields a
	// single unresolved candidate with no renderer handle.
	if len(got.Candidates) != 3 {
		t.Fatalf("candidate count = %d, want 3: %#v", len(got.Candidates), got.Candidates)
	}
	if c := got.Candidates[0]; c.MimeType != "text/plain" || c.IsResolved || c.RendererHandle != 0 {
		t.Fatalf("unexpected text/plain candidate: %#v", c)
	}
	// application/vnd.custom: resolved first match, unresolved second match,
	// no builtin entry (not core supported).
	if c := got.Candidates[1]; c.RendererHandle != first || !c.IsResolved || c.RenderedContent != "a" {
		t.Fatalf("unexpected resolved candidate: %#v", c)
	}
	if c := got.Candidates[2]; c.RendererHandle != second || c.IsResolved {
		t.Fatalf("unexpected unresolved candidate: %#v", c)
	}
}

func TestResolveAppendsBuiltinForCoreMimetype(t *testing.T) {
	order := NewOrder([]string{"text/plain"})
	registry := NewRegistry()
	registry.Register("text", "Text", []string{"text/*"}, nil, func(string, string) (string, error) {
		return "styled", nil
	})
	resolver := NewResolver(order, registry, nil)

	got := resolver.Resolve(displayOutput(1, map[string]string{"text/plain": "x"}))
	if len(got.Candidates) != 2 {
		t.Fatalf("candidate count = %d, want 2: %#v", len(got.Candidates), got.Candidates)
	}
	if c := got.Candidates[1]; c.RendererHandle != types.BuiltinRenderer || c.IsResolved {
		t.Fatalf("expected unresolved builtin candidate, got %#v", c)
	}
}

func TestPickRendersUnresolvedCandidateExactlyOnce(t *testing.T) {
	order := NewOrder([]string{"image/png", "image/svg+xml"})
	registry := NewRegistry()
	pngCalls, svgCalls := 0, 0
	registry.Register("png", "PNG", []string{"image/png"}, nil, func(string, string) (string, error) {
		pngCalls++
		return "png", nil
	})
	registry.Register("svg", "SVG", []string{"image/svg+xml"}, nil, func(string, string) (string, error) {
		svgCalls++
		return "svg", nil
	})
	resolver := NewResolver(order, registry, nil)

	got := resolver.Resolve(displayOutput(1, map[string]string{
		"image/png":     "p",
		"image/svg+xml": "s",
	}))
	if pngCalls != 1 || svgCalls != 1 {
		t.Fatalf("eager renders png=%d svg=%d, want 1 each (top per mimetype)", pngCalls, svgCalls)
	}

	// Candidate 1 is the resolved svg entry; picking it must not re-render.
	svgIndex := -1
	for i, c := range got.Candidates {
		if c.MimeType == "image/svg+xml" && c.IsResolved {
			svgIndex = i
		}
	}
	if svgIndex < 0 {
		t.Fatalf("no resolved svg candidate: %#v", got.Candidates)
	}
	if err := resolver.Pick(got, svgIndex); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if svgCalls != 1 {
		t.Fatalf("svg render invocations = %d after re-pick, want 1", svgCalls)
	}
	if got.PickedIndex != svgIndex {
		t.Fatalf("picked index = %d, want %d", got.PickedIndex, svgIndex)
	}
}

func TestPickLazilyRendersSecondMatch(t *testing.T) {
	order := NewOrder([]string{"image/png"})
	registry := NewRegistry()
	altCalls := 0
	registry.Register("png", "PNG", []string{"image/png"}, nil, func(string, string) (string, error) {
		return "primary", nil
	})
	registry.Register("png-alt", "PNG alt", []string{"image/*"}, nil, func(string, string) (string, error) {
		altCalls++
		return "alt", nil
	})
	resolver := NewResolver(order, registry, nil)

	got := resolver.Resolve(displayOutput(1, map[string]string{"image/png": "p"}))
	if altCalls != 0 {
		t.Fatalf("alt rendered eagerly: %d", altCalls)
	}
	if err := resolver.Pick(got, 1); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if altCalls != 1 {
		t.Fatalf("alt render invocations = %d, want 1", altCalls)
	}
	if c := got.Candidates[1]; !c.IsResolved || c.RenderedContent != "alt" {
		t.Fatalf("candidate not resolved by pick: %#v", c)
	}
	if c := got.Candidates[0]; !c.IsResolved {
		t.Fatalf("primary candidate lost resolution: %#v", c)
	}
}

func TestPickHonorsConfiguredRenderWidth(t *testing.T) {
	content := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"
	resolver := NewResolver(NewOrder([]string{"text/markdown"}), NewRegistry(), nil)
	resolver.SetRenderWidth(24)

	got := resolver.Resolve(displayOutput(1, map[string]string{"text/markdown": content}))
	if err := resolver.Pick(got, 0); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	rendered := got.Candidates[0].RenderedContent
	if want := RenderCoreWidth("text/markdown", content, 24); rendered != want {
		t.Fatalf("rendered at wrong width:\n got %q\nwant %q", rendered, want)
	}
	if rendered == RenderCoreWidth("text/markdown", content, DefaultRenderWidth) {
		t.Fatalf("configured width ignored, output matches the default width")
	}
}

func TestPickOutOfRange(t *testing.T) {
	resolver := NewResolver(nil, nil, nil)
	got := resolver.Resolve(displayOutput(1, map[string]string{"text/plain": "x"}))
	if err := resolver.Pick(got, 5); err == nil {
		t.Fatalf("expected error for out-of-range pick")
	}
}

func TestUsedRendererHandles(t *testing.T) {
	order := NewOrder([]string{"image/png", "text/plain"})
	registry := NewRegistry()
	png := registry.Register("png", "PNG", []string{"image/png"}, nil, func(string, string) (string, error) {
		return "png", nil
	})
	resolver := NewResolver(order, registry, nil)

	outputs := []*types.TransformedOutput{
		resolver.Resolve(displayOutput(1, map[string]string{"image/png": "a"})),
		resolver.Resolve(displayOutput(2, map[string]string{"image/png": "b"})),
		resolver.Resolve(displayOutput(3, map[string]string{"text/plain": "c"})),
	}
	used := UsedRendererHandles(outputs)
	if len(used) != 1 || used[0] != png {
		t.Fatalf("used renderers = %#v, want [%d]", used, png)
	}
}

func TestResolvePassesThroughNonDisplayOutputs(t *testing.T) {
	resolver := NewResolver(nil, nil, nil)
	stream := &types.Output{ID: 9, Kind: types.OutputKindStream, Text: "hello"}
	got := resolver.Resolve(stream)
	if len(got.Candidates) != 0 {
		t.Fatalf("stream output gained candidates: %#v", got.Candidates)
	}
	if got.Output != stream {
		t.Fatalf("output identity lost")
	}
}
