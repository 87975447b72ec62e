package types

import "strings"

type OutputKind string

const (
	OutputKindStream  OutputKind = "stream"
	OutputKindError   OutputKind = "error"
	OutputKindDisplay OutputKind = "display"
)

// RendererHandle identifies a registered output renderer. Zero means no
// renderer; BuiltinRenderer marks a mimetype the core can render natively.
type RendererHandle int

const BuiltinRenderer RendererHandle = -1

// Output is one cell output payload. ID is the arena identity assigned by the
// owning cell model; two outputs are the same logical output only when their
// IDs match.
type Output struct {
	ID   int64      `json:"id"`
	Kind OutputKind `json:"kind"`

	// stream
	Text string `json:"text,omitempty"`

	// error
	ErrorName    string   `json:"ename,omitempty"`
	ErrorMessage string   `json:"evalue,omitempty"`
	Traceback    []string `json:"traceback,omitempty"`

	// display / execute_result
	Data map[string]string `json:"data,omitempty"`
}

// MimeTypes returns the display payload's mimetype keys, trimmed. Order is
// unspecified; callers sort by display-order rank.
func (o *Output) MimeTypes() []string {
	if o == nil || len(o.Data) == 0 {
		return nil
	}
	out := make([]string, 0, len(o.Data))
	for mime := range o.Data {
		mime = strings.TrimSpace(mime)
		if mime == "" {
			continue
		}
		out = append(out, mime)
	}
	return out
}

func (o *Output) IsDisplay() bool {
	return o != nil && o.Kind == OutputKindDisplay
}

// MimeCandidate is one (mimetype, renderer) pairing considered for rendering
// a display output. RenderedContent is set only for resolved candidates.
type MimeCandidate struct {
	MimeType        string         `json:"mime_type"`
	IsResolved      bool           `json:"is_resolved"`
	RendererHandle  RendererHandle `json:"renderer_handle,omitempty"`
	RenderedContent string         `json:"rendered_content,omitempty"`
}

// TransformedOutput is a display output with its resolved candidate list.
// Candidates are ordered by ascending mimetype rank; PickedIndex starts at 0.
type TransformedOutput struct {
	Output      *Output         `json:"output"`
	Candidates  []MimeCandidate `json:"candidates,omitempty"`
	PickedIndex int             `json:"picked_index"`
}

func (t *TransformedOutput) Picked() (MimeCandidate, bool) {
	if t == nil || t.PickedIndex < 0 || t.PickedIndex >= len(t.Candidates) {
		return MimeCandidate{}, false
	}
	return t.Candidates[t.PickedIndex], true
}

func CloneOutput(o *Output) *Output {
	if o == nil {
		return nil
	}
	copy := *o
	if len(o.Traceback) > 0 {
		copy.Traceback = append([]string(nil), o.Traceback...)
	}
	if o.Data != nil {
		copy.Data = make(map[string]string, len(o.Data))
		for k, v := range o.Data {
			copy.Data[k] = v
		}
	}
	return &copy
}

func CloneTransformedOutput(t *TransformedOutput) *TransformedOutput {
	if t == nil {
		return nil
	}
	copy := *t
	copy.Output = CloneOutput(t.Output)
	if len(t.Candidates) > 0 {
		copy.Candidates = append([]MimeCandidate(nil), t.Candidates...)
	}
	return &copy
}
