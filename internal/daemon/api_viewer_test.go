package daemon

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"notebook/internal/store"
)

func TestViewerStateWithoutStoreIsUnavailable(t *testing.T) {
	_, mux := newTestAPI(t)
	rec := doJSON(t, mux, http.MethodGet, "/v1/viewer/state", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestViewerStateRoundTrip(t *testing.T) {
	api, mux := newTestAPI(t)
	prefs, err := store.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = prefs.Close() })
	api.Prefs = prefs

	state := store.ViewerState{LastURI: "file:///a.ipynb", ScrollOffset: 7, SelectedCell: 2}
	rec := doJSON(t, mux, http.MethodPut, "/v1/viewer/state", state)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/v1/viewer/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d: %s", rec.Code, rec.Body.String())
	}
	var got store.ViewerState
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.LastURI != state.LastURI || got.ScrollOffset != 7 || got.SelectedCell != 2 {
		t.Fatalf("state = %#v", got)
	}
	if got.UpdatedAtUnix == 0 {
		t.Fatalf("timestamp not stamped")
	}
}
