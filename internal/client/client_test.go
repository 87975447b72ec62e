package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"notebook/internal/daemon"
	"notebook/internal/notebook"
	"notebook/internal/store"
)

type echoProvider struct{}

func (echoProvider) ResolveNotebook(ctx context.Context, uri string) ([]notebook.CellData, error) {
	return []notebook.CellData{{Source: []string{"x = 1"}, Language: "python", Kind: "code"}}, nil
}

func (echoProvider) ExecuteCell(ctx context.Context, uri string, cellHandle int) error {
	return nil
}

func (echoProvider) SaveNotebook(ctx context.Context, uri string) (bool, error) {
	return true, nil
}

func newTestServer(t *testing.T) (*Client, *notebook.Manager) {
	t.Helper()
	manager := notebook.NewManager(notebook.ManagerOptions{})
	if err := manager.RegisterProvider("test-notebook", echoProvider{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	api := &daemon.API{Version: "test", Manager: manager}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewWithBaseURL(srv.URL), manager
}

func TestClientHealth(t *testing.T) {
	c, _ := newTestServer(t)
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !resp.OK || resp.Version != "test" {
		t.Fatalf("health = %#v", resp)
	}
}

func TestClientResolveAndListCells(t *testing.T) {
	c, _ := newTestServer(t)
	handle, err := c.ResolveNotebook(context.Background(), "test-notebook", "file:///a.ipynb")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if handle <= 0 {
		t.Fatalf("handle = %d", handle)
	}
	cells, err := c.ListCells(context.Background(), "file:///a.ipynb")
	if err != nil {
		t.Fatalf("list cells: %v", err)
	}
	if len(cells) != 1 || cells[0].Source[0] != "x = 1" {
		t.Fatalf("cells = %#v", cells)
	}
}

func TestClientErrorsCarryDaemonMessage(t *testing.T) {
	c, _ := newTestServer(t)
	_, err := c.ListCells(context.Background(), "file:///missing.ipynb")
	if err == nil {
		t.Fatalf("expected error for unknown notebook")
	}
	if !strings.Contains(err.Error(), "notebook not found") {
		t.Fatalf("error = %v, want daemon message", err)
	}
}

func TestClientDeleteCellReportsOutOfRange(t *testing.T) {
	c, _ := newTestServer(t)
	if _, err := c.ResolveNotebook(context.Background(), "test-notebook", "file:///a.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ok, err := c.DeleteCell(context.Background(), "file:///a.ipynb", 10)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok {
		t.Fatalf("out-of-range delete reported true")
	}
}

func TestClientViewerStateRoundTrip(t *testing.T) {
	manager := notebook.NewManager(notebook.ManagerOptions{})
	prefs, err := store.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = prefs.Close() })
	api := &daemon.API{Version: "test", Manager: manager, Prefs: prefs}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewWithBaseURL(srv.URL)

	want := &store.ViewerState{LastURI: "file:///a.ipynb", ScrollOffset: 3, SelectedCell: 1}
	if err := c.SaveViewerState(context.Background(), want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.ViewerState(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.LastURI != want.LastURI || got.ScrollOffset != 3 || got.SelectedCell != 1 {
		t.Fatalf("state = %#v", got)
	}
}

func TestPeerURL(t *testing.T) {
	c := NewWithBaseURL("http://localhost:9000")
	if got := c.PeerURL(); got != "ws://localhost:9000/v1/peer" {
		t.Fatalf("peer url = %q", got)
	}
}
