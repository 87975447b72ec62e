package types

type CellKind string

const (
	CellKindMarkdown CellKind = "markdown"
	CellKindCode     CellKind = "code"
)

// CellRecord is the transport form of a cell, sent to presentation peers
// inside cell splices.
type CellRecord struct {
	Handle   int                  `json:"handle"`
	Source   []string             `json:"source"`
	Language string               `json:"language"`
	Kind     CellKind             `json:"kind"`
	Outputs  []*TransformedOutput `json:"outputs,omitempty"`
	Dirty    bool                 `json:"dirty"`
}

// NotebookInfo describes an open document.
type NotebookInfo struct {
	Handle    int      `json:"handle"`
	ViewType  string   `json:"view_type"`
	URI       string   `json:"uri"`
	Languages []string `json:"languages,omitempty"`
}

// DocumentSnapshot is the full state of one document, sent to a peer when it
// first connects so it can catch up before receiving incremental splices.
type DocumentSnapshot struct {
	Info  *NotebookInfo `json:"info"`
	Cells []*CellRecord `json:"cells"`
}

// RendererInfo describes a registered output renderer.
type RendererInfo struct {
	Handle        RendererHandle `json:"handle"`
	Type          string         `json:"type"`
	DisplayName   string         `json:"display_name,omitempty"`
	MimeTypes     []string       `json:"mime_types"`
	PreloadAssets []string       `json:"preload_assets,omitempty"`
}

func CloneCellRecord(c *CellRecord) *CellRecord {
	if c == nil {
		return nil
	}
	copy := *c
	if len(c.Source) > 0 {
		copy.Source = append([]string(nil), c.Source...)
	}
	if len(c.Outputs) > 0 {
		copy.Outputs = make([]*TransformedOutput, 0, len(c.Outputs))
		for _, out := range c.Outputs {
			copy.Outputs = append(copy.Outputs, CloneTransformedOutput(out))
		}
	}
	return &copy
}

func CloneRendererInfo(r *RendererInfo) *RendererInfo {
	if r == nil {
		return nil
	}
	copy := *r
	if len(r.MimeTypes) > 0 {
		copy.MimeTypes = append([]string(nil), r.MimeTypes...)
	}
	if len(r.PreloadAssets) > 0 {
		copy.PreloadAssets = append([]string(nil), r.PreloadAssets...)
	}
	return &copy
}
