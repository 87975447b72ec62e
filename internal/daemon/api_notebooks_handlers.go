package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"notebook/internal/notebook"
)

func (a *API) Notebooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"notebooks": a.Manager.Documents()})
	case http.MethodPost:
		var req ResolveNotebookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		handle, err := a.Manager.ResolveNotebook(r.Context(), req.ViewType, req.URI)
		if err != nil {
			writeServiceError(w, invalidError("resolve notebook failed", err))
			return
		}
		writeJSON(w, http.StatusOK, ResolveNotebookResponse{Handle: handle})
	default:
		methodNotAllowed(w)
	}
}

func (a *API) NotebookCells(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		uri := strings.TrimSpace(r.URL.Query().Get("uri"))
		if uri == "" {
			writeServiceError(w, invalidError("uri query parameter is required", nil))
			return
		}
		records, err := a.Manager.CellRecords(uri)
		if err != nil {
			writeServiceError(w, mapModelError(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cells": records})
	case http.MethodPost:
		var req CreateCellRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		record, err := a.Manager.CreateCell(req.URI, req.Index, req.Language, req.Kind)
		if err != nil {
			writeServiceError(w, mapModelError(err))
			return
		}
		writeJSON(w, http.StatusCreated, record)
	case http.MethodDelete:
		var req DeleteCellRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		ok, err := a.Manager.DeleteCell(req.URI, req.Index)
		if err != nil {
			writeServiceError(w, mapModelError(err))
			return
		}
		writeJSON(w, http.StatusOK, OKResponse{OK: ok})
	default:
		methodNotAllowed(w)
	}
}

func (a *API) ExecuteCell(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req ExecuteCellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if err := a.Manager.ExecuteCell(r.Context(), req.URI, req.CellHandle); err != nil {
		writeServiceError(w, mapModelError(err))
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (a *API) SaveNotebook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req SaveNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	ok, err := a.Manager.SaveNotebook(r.Context(), req.URI)
	if err != nil {
		writeServiceError(w, mapModelError(err))
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: ok})
}

func (a *API) CloseNotebook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req SaveNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if err := a.Manager.CloseNotebook(req.URI); err != nil {
		writeServiceError(w, mapModelError(err))
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (a *API) UpdateLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req UpdateLanguagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if err := a.Manager.UpdateLanguages(req.URI, req.Languages); err != nil {
		writeServiceError(w, mapModelError(err))
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (a *API) CellBuffers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req CellBufferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if err := a.Manager.AttachCellTextDocument(r.Context(), req.URI, req.CellHandle); err != nil {
			writeServiceError(w, mapModelError(err))
			return
		}
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	case http.MethodDelete:
		var req CellBufferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if err := a.Manager.DetachCellTextDocument(req.URI, req.CellHandle); err != nil {
			writeServiceError(w, mapModelError(err))
			return
		}
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	default:
		methodNotAllowed(w)
	}
}

func (a *API) ActiveEditor(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"uri": a.Manager.ActiveEditor()})
	case http.MethodPost:
		var req ActiveEditorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if err := a.Manager.SetActiveEditor(req.URI); err != nil {
			writeServiceError(w, mapModelError(err))
			return
		}
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	default:
		methodNotAllowed(w)
	}
}

func mapModelError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notebook.ErrUnknownDocument):
		return notFoundError("notebook not found", err)
	case errors.Is(err, notebook.ErrUnknownCell):
		return notFoundError("cell not found", err)
	default:
		return invalidError(err.Error(), err)
	}
}
