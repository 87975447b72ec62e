package daemon

import "net/http"

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.Health)
	mux.HandleFunc("/v1/notebooks", a.Notebooks)
	mux.HandleFunc("/v1/notebooks/cells", a.NotebookCells)
	mux.HandleFunc("/v1/notebooks/execute", a.ExecuteCell)
	mux.HandleFunc("/v1/notebooks/save", a.SaveNotebook)
	mux.HandleFunc("/v1/notebooks/close", a.CloseNotebook)
	mux.HandleFunc("/v1/notebooks/languages", a.UpdateLanguages)
	mux.HandleFunc("/v1/notebooks/buffers", a.CellBuffers)
	mux.HandleFunc("/v1/editor", a.ActiveEditor)
	mux.HandleFunc("/v1/display/order", a.DisplayOrder)
	mux.HandleFunc("/v1/display/renderers", a.Renderers)
	mux.HandleFunc("/v1/display/pick", a.PickMimeType)
	mux.HandleFunc("/v1/viewer/state", a.ViewerState)
	mux.HandleFunc("/v1/peer", a.Peer)
	mux.HandleFunc("/v1/shutdown", a.ShutdownDaemon)
}
