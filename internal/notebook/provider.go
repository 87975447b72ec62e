package notebook

import "context"

// CellData is the provider-supplied seed for a cell before the model assigns
// handles and output identities.
type CellData struct {
	Source   []string
	Language string
	Kind     string
	Outputs  []OutputData
}

// OutputData is the provider-supplied seed for one output.
type OutputData struct {
	Kind         string
	Text         string
	ErrorName    string
	ErrorMessage string
	Traceback    []string
	Data         map[string]string
}

// ContentProvider supplies notebook content for one view type. Providers
// push execution results back through the manager's output setter rather
// than returning them from ExecuteCell.
type ContentProvider interface {
	// ResolveNotebook loads the initial cell content for a URI.
	ResolveNotebook(ctx context.Context, uri string) ([]CellData, error)
	// ExecuteCell starts execution of one cell.
	ExecuteCell(ctx context.Context, uri string, cellHandle int) error
	// SaveNotebook persists the document. False means the provider declined
	// or the save did not complete.
	SaveNotebook(ctx context.Context, uri string) (bool, error)
}

// TextBufferResolver opens the live editor buffer backing a cell. Resolution
// may be slow or cancelled; a cancelled resolve silently skips the attach.
type TextBufferResolver interface {
	Resolve(ctx context.Context, notebookURI string, cellHandle int) (TextBuffer, error)
}
