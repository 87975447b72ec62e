// Package client is the HTTP side of talking to the notebook daemon, used by
// the CLI and the terminal viewer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notebook/internal/daemon"
	"notebook/internal/store"
	"notebook/internal/types"
)

const defaultBaseURL = "http://127.0.0.1:8807"

type Client struct {
	baseURL string
	http    *http.Client
}

func New() *Client {
	return NewWithBaseURL(defaultBaseURL)
}

func NewWithBaseURL(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PeerURL returns the websocket endpoint for the sync stream.
func (c *Client) PeerURL() string {
	base := strings.TrimPrefix(c.baseURL, "http://")
	base = strings.TrimPrefix(base, "https://")
	return "ws://" + base + "/v1/peer"
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListNotebooks(ctx context.Context) ([]*types.NotebookInfo, error) {
	var resp NotebooksResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/notebooks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notebooks, nil
}

func (c *Client) ResolveNotebook(ctx context.Context, viewType, uri string) (int, error) {
	var resp daemon.ResolveNotebookResponse
	req := daemon.ResolveNotebookRequest{ViewType: viewType, URI: uri}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/notebooks", req, &resp); err != nil {
		return -1, err
	}
	return resp.Handle, nil
}

func (c *Client) ListCells(ctx context.Context, uri string) ([]*types.CellRecord, error) {
	var resp CellsResponse
	path := "/v1/notebooks/cells?uri=" + url.QueryEscape(uri)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cells, nil
}

func (c *Client) CreateCell(ctx context.Context, uri string, index int, language, kind string) (*types.CellRecord, error) {
	var resp types.CellRecord
	req := daemon.CreateCellRequest{URI: uri, Index: index, Language: language, Kind: kind}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/notebooks/cells", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteCell(ctx context.Context, uri string, index int) (bool, error) {
	var resp daemon.OKResponse
	req := daemon.DeleteCellRequest{URI: uri, Index: index}
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/notebooks/cells", req, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

func (c *Client) ExecuteCell(ctx context.Context, uri string, cellHandle int) error {
	req := daemon.ExecuteCellRequest{URI: uri, CellHandle: cellHandle}
	return c.doJSON(ctx, http.MethodPost, "/v1/notebooks/execute", req, nil)
}

func (c *Client) SaveNotebook(ctx context.Context, uri string) (bool, error) {
	var resp daemon.OKResponse
	req := daemon.SaveNotebookRequest{URI: uri}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/notebooks/save", req, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

func (c *Client) SetActiveEditor(ctx context.Context, uri string) error {
	req := daemon.ActiveEditorRequest{URI: uri}
	return c.doJSON(ctx, http.MethodPost, "/v1/editor", req, nil)
}

func (c *Client) SetDisplayOrder(ctx context.Context, defaultOrder, userOrder []string) error {
	req := daemon.DisplayOrderRequest{DefaultOrder: defaultOrder, UserOrder: userOrder}
	return c.doJSON(ctx, http.MethodPut, "/v1/display/order", req, nil)
}

func (c *Client) UserDisplayOrder(ctx context.Context) ([]string, error) {
	var resp DisplayOrderResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/display/order", nil, &resp); err != nil {
		return nil, err
	}
	return resp.UserOrder, nil
}

func (c *Client) ListRenderers(ctx context.Context) ([]*types.RendererInfo, error) {
	var resp RenderersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/display/renderers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Renderers, nil
}

func (c *Client) PickMimeType(ctx context.Context, uri string, cellHandle, outputIndex, candidateIndex int) (*types.TransformedOutput, error) {
	var resp types.TransformedOutput
	req := daemon.PickMimeTypeRequest{
		URI:            uri,
		CellHandle:     cellHandle,
		OutputIndex:    outputIndex,
		CandidateIndex: candidateIndex,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/display/pick", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ViewerState fetches the viewer position persisted by the last run.
func (c *Client) ViewerState(ctx context.Context) (*store.ViewerState, error) {
	var resp store.ViewerState
	if err := c.doJSON(ctx, http.MethodGet, "/v1/viewer/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SaveViewerState(ctx context.Context, state *store.ViewerState) error {
	return c.doJSON(ctx, http.MethodPut, "/v1/viewer/state", state, nil)
}

func (c *Client) ShutdownDaemon(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/shutdown", nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return fmt.Errorf("daemon: %s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("daemon: unexpected status %d", resp.StatusCode)
}
