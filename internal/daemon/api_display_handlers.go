package daemon

import (
	"encoding/json"
	"errors"
	"net/http"

	"notebook/internal/display"
)

func (a *API) DisplayOrder(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"user_order": a.Manager.Resolver().Order().UserOrder(),
		})
	case http.MethodPut:
		var req DisplayOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if err := a.Manager.AcceptDisplayOrder(req.DefaultOrder, req.UserOrder); err != nil {
			writeServiceError(w, invalidError("accept display order failed", err))
			return
		}
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	default:
		methodNotAllowed(w)
	}
}

func (a *API) Renderers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"renderers": a.Manager.Renderers()})
}

func (a *API) PickMimeType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req PickMimeTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	transformed, err := a.Manager.PickOutputMimeType(req.URI, req.CellHandle, req.OutputIndex, req.CandidateIndex)
	if err != nil {
		if errors.Is(err, display.ErrNoCandidate) {
			writeServiceError(w, invalidError("no candidate at index", err))
			return
		}
		writeServiceError(w, mapModelError(err))
		return
	}
	writeJSON(w, http.StatusOK, transformed)
}
