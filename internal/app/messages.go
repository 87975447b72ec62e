package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"notebook/internal/client"
	"notebook/internal/remote"
	"notebook/internal/store"
	"notebook/internal/types"
)

type streamConnectedMsg struct {
	stream *client.SyncStream
}

type streamClosedMsg struct {
	err error
}

type syncMsg struct {
	message *remote.Message
}

type pickAppliedMsg struct {
	uri         string
	cellHandle  int
	outputIndex int
	transformed *types.TransformedOutput
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type reconnectMsg struct{}

func connectStream(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		// The context only bounds the dial; the stream lives until the
		// connection drops or the model closes it.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stream, err := c.OpenSyncStream(ctx)
		if err != nil {
			return streamClosedMsg{err: err}
		}
		return streamConnectedMsg{stream: stream}
	}
}

func reconnectLater() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

func waitForSync(stream *client.SyncStream) tea.Cmd {
	return func() tea.Msg {
		message, ok := <-stream.Messages()
		if !ok {
			return streamClosedMsg{err: stream.Err()}
		}
		return syncMsg{message: message}
	}
}

func executeCell(c *client.Client, uri string, cellHandle int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.ExecuteCell(ctx, uri, cellHandle); err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		return statusMsg{text: "execution started"}
	}
}

func saveNotebook(c *client.Client, uri string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ok, err := c.SaveNotebook(ctx, uri)
		if err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		if !ok {
			return statusMsg{text: "save declined", isErr: true}
		}
		return statusMsg{text: "saved"}
	}
}

func pickMimeType(c *client.Client, uri string, cellHandle, outputIndex, candidateIndex int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		transformed, err := c.PickMimeType(ctx, uri, cellHandle, outputIndex, candidateIndex)
		if err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		return pickAppliedMsg{
			uri:         uri,
			cellHandle:  cellHandle,
			outputIndex: outputIndex,
			transformed: transformed,
		}
	}
}

type viewerStateMsg struct {
	state *store.ViewerState
}

func loadViewerState(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		state, err := c.ViewerState(ctx)
		if err != nil {
			// Position restore is best effort; a daemon without a prefs
			// store just starts the viewer at the top.
			return viewerStateMsg{}
		}
		return viewerStateMsg{state: state}
	}
}

func saveViewerState(c *client.Client, state *store.ViewerState) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.SaveViewerState(ctx, state)
		return nil
	}
}

func clearStatusLater() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
