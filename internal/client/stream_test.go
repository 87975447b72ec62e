package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notebook/internal/daemon"
	"notebook/internal/notebook"
	"notebook/internal/remote"
)

func newSyncTestServer(t *testing.T) (*Client, *notebook.Manager) {
	t.Helper()
	manager := notebook.NewManager(notebook.ManagerOptions{})
	if err := manager.RegisterProvider("test-notebook", echoProvider{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	hub := remote.NewHub(nil, manager.Snapshot)
	manager.SetPeer(hub)
	api := &daemon.API{Version: "test", Manager: manager, Hub: hub}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return NewWithBaseURL(srv.URL), manager
}

func readSync(t *testing.T, stream *SyncStream) *remote.Message {
	t.Helper()
	select {
	case msg, ok := <-stream.Messages():
		if !ok {
			t.Fatalf("stream closed early: %v", stream.Err())
		}
		return msg
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for sync message")
	}
	return nil
}

func TestSyncStreamOutlivesDialContext(t *testing.T) {
	c, manager := newSyncTestServer(t)
	if _, err := manager.ResolveNotebook(context.Background(), "test-notebook", "file:///a.ipynb"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	stream, err := c.OpenSyncStream(ctx)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()
	// The dial context is released as soon as the connect step returns; the
	// stream must keep delivering messages regardless.
	cancel()

	snapshot := readSync(t, stream)
	if snapshot.Type != remote.MessageSnapshot || len(snapshot.Snapshot) != 1 {
		t.Fatalf("first message = %#v", snapshot)
	}

	if err := manager.UpdateLanguages("file:///a.ipynb", []string{"python"}); err != nil {
		t.Fatalf("update languages: %v", err)
	}
	update := readSync(t, stream)
	if update.Type != remote.MessageUpdateLanguages || update.UpdateLanguages == nil {
		t.Fatalf("broadcast = %#v", update)
	}
	if got := update.UpdateLanguages.Languages; len(got) != 1 || got[0] != "python" {
		t.Fatalf("languages = %#v", got)
	}
}

func TestSyncStreamCloseIsClean(t *testing.T) {
	c, _ := newSyncTestServer(t)
	stream, err := c.OpenSyncStream(context.Background())
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	readSync(t, stream) // snapshot

	if err := stream.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case _, ok := <-stream.Messages():
		if ok {
			t.Fatalf("message after close")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("messages channel not closed")
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("close reported error: %v", err)
	}
}
