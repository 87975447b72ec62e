package notebook

import (
	"context"
	"fmt"
	"testing"

	"notebook/internal/types"
)

type fakePrefs struct {
	userOrder []string
	picks     map[string]int
	deleted   []string
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{picks: map[string]int{}}
}

func pickTestKey(uri string, cellHandle, outputIndex int) string {
	return fmt.Sprintf("%s|%d|%d", uri, cellHandle, outputIndex)
}

func (p *fakePrefs) SaveUserOrder(patterns []string) error {
	p.userOrder = append([]string(nil), patterns...)
	return nil
}

func (p *fakePrefs) LoadUserOrder() ([]string, error) {
	return p.userOrder, nil
}

func (p *fakePrefs) SavePickedMimeType(uri string, cellHandle, outputIndex, candidateIndex int) error {
	p.picks[pickTestKey(uri, cellHandle, outputIndex)] = candidateIndex
	return nil
}

func (p *fakePrefs) LoadPickedMimeType(uri string, cellHandle, outputIndex int) (int, bool, error) {
	index, ok := p.picks[pickTestKey(uri, cellHandle, outputIndex)]
	return index, ok, nil
}

func (p *fakePrefs) DeleteDocumentPicks(uri string) error {
	p.deleted = append(p.deleted, uri)
	for key := range p.picks {
		if len(key) > len(uri) && key[:len(uri)+1] == uri+"|" {
			delete(p.picks, key)
		}
	}
	return nil
}

func displayCellProvider() *staticProvider {
	return &staticProvider{cells: []CellData{{
		Kind: string(types.CellKindCode),
		Outputs: []OutputData{{
			Kind: string(types.OutputKindDisplay),
			Data: map[string]string{
				"text/markdown": "# hi",
				"text/plain":    "hi",
			},
		}},
	}}}
}

func TestPersistedPickRestoredOnResolve(t *testing.T) {
	prefs := newFakePrefs()
	// Candidate order with no registered renderers: text/markdown, text/plain.
	prefs.picks[pickTestKey("file:///nb.ipynb", 1, 0)] = 1

	m := NewManager(ManagerOptions{Prefs: prefs})
	if err := m.RegisterProvider("test-notebook", displayCellProvider()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "test-notebook", "file:///nb.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	records, err := m.CellRecords("file:///nb.ipynb")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	transformed := records[0].Outputs[0]
	if transformed.PickedIndex != 1 {
		t.Fatalf("picked index = %d, want restored pick 1", transformed.PickedIndex)
	}
	picked, ok := transformed.Picked()
	if !ok || picked.MimeType != "text/plain" || !picked.IsResolved {
		t.Fatalf("picked candidate = %#v", picked)
	}
}

func TestPersistedPickAppliedToReplacementOutput(t *testing.T) {
	prefs := newFakePrefs()
	peer := &capturePeer{}
	m := NewManager(ManagerOptions{Prefs: prefs, Peer: peer})
	if err := m.RegisterProvider("test-notebook", displayCellProvider()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "test-notebook", "file:///nb.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := m.PickOutputMimeType("file:///nb.ipynb", 1, 0, 1); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if _, ok := prefs.picks[pickTestKey("file:///nb.ipynb", 1, 0)]; !ok {
		t.Fatalf("pick not persisted: %#v", prefs.picks)
	}

	// Re-execution replaces the output; the pick is positional and sticks.
	err := m.UpdateCellOutputs("file:///nb.ipynb", 1, []OutputData{{
		Kind: string(types.OutputKindDisplay),
		Data: map[string]string{
			"text/markdown": "# again",
			"text/plain":    "again",
		},
	}})
	if err != nil {
		t.Fatalf("update outputs: %v", err)
	}
	last := peer.outputSplices[len(peer.outputSplices)-1]
	got := last.splices[0].Outputs[0]
	if got.PickedIndex != 1 {
		t.Fatalf("replacement picked index = %d, want 1", got.PickedIndex)
	}
}

func TestCloseNotebookDropsDocumentPicks(t *testing.T) {
	prefs := newFakePrefs()
	m := NewManager(ManagerOptions{Prefs: prefs})
	if err := m.RegisterProvider("test-notebook", displayCellProvider()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.ResolveNotebook(context.Background(), "test-notebook", "file:///nb.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := m.PickOutputMimeType("file:///nb.ipynb", 1, 0, 1); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if err := m.CloseNotebook("file:///nb.ipynb"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(prefs.deleted) != 1 || prefs.deleted[0] != "file:///nb.ipynb" {
		t.Fatalf("deleted picks = %#v", prefs.deleted)
	}
	if len(prefs.picks) != 0 {
		t.Fatalf("picks left behind: %#v", prefs.picks)
	}
}
