package client

import "notebook/internal/types"

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

type NotebooksResponse struct {
	Notebooks []*types.NotebookInfo `json:"notebooks"`
}

type CellsResponse struct {
	Cells []*types.CellRecord `json:"cells"`
}

type RenderersResponse struct {
	Renderers []*types.RendererInfo `json:"renderers"`
}

type DisplayOrderResponse struct {
	UserOrder []string `json:"user_order"`
}
