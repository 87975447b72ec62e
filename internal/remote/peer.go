// Package remote fans model-sync messages out to connected presentation
// surfaces over websockets. The extension side stays unaware of transport;
// it talks to the Hub through the peer proxy interface.
package remote

import (
	"encoding/json"

	"notebook/internal/types"
)

const (
	MessageSnapshot           = "snapshot"
	MessageCreateDocument     = "create_document"
	MessageSpliceCells        = "splice_cells"
	MessageSpliceCellOutputs  = "splice_cell_outputs"
	MessageRegisterRenderer   = "register_renderer"
	MessageUnregisterRenderer = "unregister_renderer"
	MessageUpdateLanguages    = "update_languages"
)

// Message is the wire envelope for one sync event. Exactly one payload field
// is set, matching Type.
type Message struct {
	Type string `json:"type"`

	Snapshot           []*types.DocumentSnapshot  `json:"snapshot,omitempty"`
	CreateDocument     *CreateDocumentPayload     `json:"create_document,omitempty"`
	SpliceCells        *SpliceCellsPayload        `json:"splice_cells,omitempty"`
	SpliceCellOutputs  *SpliceCellOutputsPayload  `json:"splice_cell_outputs,omitempty"`
	RegisterRenderer   *types.RendererInfo        `json:"register_renderer,omitempty"`
	UnregisterRenderer *UnregisterRendererPayload `json:"unregister_renderer,omitempty"`
	UpdateLanguages    *UpdateLanguagesPayload    `json:"update_languages,omitempty"`
}

type CreateDocumentPayload struct {
	Handle   int                 `json:"handle"`
	ViewType string              `json:"view_type"`
	URI      string              `json:"uri"`
	Cells    []*types.CellRecord `json:"cells,omitempty"`
}

type SpliceCellsPayload struct {
	URI           string                 `json:"uri"`
	Splices       []*types.CellSplice    `json:"splices"`
	UsedRenderers []types.RendererHandle `json:"used_renderers,omitempty"`
}

type SpliceCellOutputsPayload struct {
	URI           string                 `json:"uri"`
	CellHandle    int                    `json:"cell_handle"`
	Splices       []*types.OutputSplice  `json:"splices"`
	UsedRenderers []types.RendererHandle `json:"used_renderers,omitempty"`
}

type UnregisterRendererPayload struct {
	Handle types.RendererHandle `json:"handle"`
}

type UpdateLanguagesPayload struct {
	URI       string   `json:"uri"`
	Languages []string `json:"languages"`
}

func encodeMessage(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses one wire envelope, used by presentation clients.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
