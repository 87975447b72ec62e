package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *PrefsStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserOrderRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if got, err := s.LoadUserOrder(); err != nil || got != nil {
		t.Fatalf("empty load = (%#v, %v)", got, err)
	}
	if err := s.SaveUserOrder([]string{"image/*", " text/plain ", ""}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadUserOrder()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != "image/*" || got[1] != "text/plain" {
		t.Fatalf("order = %#v, want trimmed two entries", got)
	}
}

func TestPickedMimeTypeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if _, ok, err := s.LoadPickedMimeType("file:///a.ipynb", 1, 0); err != nil || ok {
		t.Fatalf("missing pick = (ok=%v, err=%v)", ok, err)
	}
	if err := s.SavePickedMimeType("file:///a.ipynb", 1, 0, 2); err != nil {
		t.Fatalf("save: %v", err)
	}
	index, ok, err := s.LoadPickedMimeType("file:///a.ipynb", 1, 0)
	if err != nil || !ok || index != 2 {
		t.Fatalf("load = (%d, %v, %v), want (2, true, nil)", index, ok, err)
	}

	// Picks for other outputs of the same cell stay independent.
	if _, ok, _ := s.LoadPickedMimeType("file:///a.ipynb", 1, 1); ok {
		t.Fatalf("pick leaked across output index")
	}
}

func TestDeleteDocumentPicksOnlyTouchesOneDocument(t *testing.T) {
	s := openTestStore(t)
	if err := s.SavePickedMimeType("file:///a.ipynb", 1, 0, 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SavePickedMimeType("file:///b.ipynb", 1, 0, 3); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.DeleteDocumentPicks("file:///a.ipynb"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.LoadPickedMimeType("file:///a.ipynb", 1, 0); ok {
		t.Fatalf("deleted pick still present")
	}
	if index, ok, _ := s.LoadPickedMimeType("file:///b.ipynb", 1, 0); !ok || index != 3 {
		t.Fatalf("unrelated pick lost: (%d, %v)", index, ok)
	}
}

func TestViewerStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	state, err := s.LoadViewerState()
	if err != nil || state.LastURI != "" {
		t.Fatalf("empty state = (%#v, %v)", state, err)
	}
	if err := s.SaveViewerState(&ViewerState{LastURI: "file:///a.ipynb", ScrollOffset: 12, SelectedCell: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	state, err = s.LoadViewerState()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state.LastURI != "file:///a.ipynb" || state.ScrollOffset != 12 || state.SelectedCell != 3 {
		t.Fatalf("state = %#v", state)
	}
	if state.UpdatedAtUnix == 0 {
		t.Fatalf("updated timestamp not stamped")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("blank path accepted")
	}
}
