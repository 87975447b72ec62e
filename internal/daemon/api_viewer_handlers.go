package daemon

import (
	"encoding/json"
	"net/http"

	"notebook/internal/store"
)

// ViewerState reads or writes the terminal viewer's persisted position. The
// store lives daemon-side so the viewer process never contends for the bbolt
// file lock.
func (a *API) ViewerState(w http.ResponseWriter, r *http.Request) {
	if a.Prefs == nil {
		writeServiceError(w, unavailableError("preferences store not configured", nil))
		return
	}
	switch r.Method {
	case http.MethodGet:
		state, err := a.Prefs.LoadViewerState()
		if err != nil {
			writeServiceError(w, unavailableError("load viewer state failed", err))
			return
		}
		writeJSON(w, http.StatusOK, state)
	case http.MethodPut:
		var state store.ViewerState
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if err := a.Prefs.SaveViewerState(&state); err != nil {
			writeServiceError(w, unavailableError("save viewer state failed", err))
			return
		}
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	default:
		methodNotAllowed(w)
	}
}
