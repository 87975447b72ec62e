// Package daemon exposes the notebook model over HTTP. Providers and
// presentation surfaces talk to the same process: inbound operations arrive
// as JSON requests, outbound splices leave over the websocket peer hub.
package daemon

import (
	"context"
	"net/http"

	"notebook/internal/logging"
	"notebook/internal/notebook"
	"notebook/internal/remote"
	"notebook/internal/store"
)

// ViewerStateStore persists the terminal viewer's last position between runs.
type ViewerStateStore interface {
	SaveViewerState(state *store.ViewerState) error
	LoadViewerState() (*store.ViewerState, error)
}

type API struct {
	Version  string
	Manager  *notebook.Manager
	Hub      *remote.Hub
	Prefs    ViewerStateStore
	Shutdown func(context.Context) error
	Logger   logging.Logger
}

type ResolveNotebookRequest struct {
	ViewType string `json:"view_type"`
	URI      string `json:"uri"`
}

type ResolveNotebookResponse struct {
	Handle int `json:"handle"`
}

type CreateCellRequest struct {
	URI      string `json:"uri"`
	Index    int    `json:"index"`
	Language string `json:"language,omitempty"`
	Kind     string `json:"kind"`
}

type DeleteCellRequest struct {
	URI   string `json:"uri"`
	Index int    `json:"index"`
}

type ExecuteCellRequest struct {
	URI        string `json:"uri"`
	CellHandle int    `json:"cell_handle"`
}

type SaveNotebookRequest struct {
	URI string `json:"uri"`
}

type UpdateLanguagesRequest struct {
	URI       string   `json:"uri"`
	Languages []string `json:"languages"`
}

type ActiveEditorRequest struct {
	URI string `json:"uri"`
}

type DisplayOrderRequest struct {
	DefaultOrder []string `json:"default_order,omitempty"`
	UserOrder    []string `json:"user_order,omitempty"`
}

type PickMimeTypeRequest struct {
	URI            string `json:"uri"`
	CellHandle     int    `json:"cell_handle"`
	OutputIndex    int    `json:"output_index"`
	CandidateIndex int    `json:"candidate_index"`
}

type CellBufferRequest struct {
	URI        string `json:"uri"`
	CellHandle int    `json:"cell_handle"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
