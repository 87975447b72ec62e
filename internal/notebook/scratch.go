package notebook

import (
	"context"
	"fmt"
	"strings"

	"notebook/internal/types"
)

// ScratchViewType is the built-in provider shipped with the daemon so a fresh
// install has something to open before any external provider registers.
const ScratchViewType = "scratch"

// ScratchProvider serves in-memory scratch notebooks. Executing a cell echoes
// its source back as outputs; saving is a no-op because scratch documents
// have no backing file.
type ScratchProvider struct {
	manager *Manager
}

func NewScratchProvider(manager *Manager) *ScratchProvider {
	return &ScratchProvider{manager: manager}
}

func (p *ScratchProvider) ResolveNotebook(ctx context.Context, uri string) ([]CellData, error) {
	return []CellData{
		{
			Kind:   string(types.CellKindMarkdown),
			Source: []string{"# Scratch", "", "Run a code cell with `e` to echo its source."},
		},
		{
			Kind:     string(types.CellKindCode),
			Language: "text",
			Source:   []string{"hello, notebook"},
		},
	}, nil
}

func (p *ScratchProvider) ExecuteCell(ctx context.Context, uri string, cellHandle int) error {
	records, err := p.manager.CellRecords(uri)
	if err != nil {
		return err
	}
	var record *types.CellRecord
	for _, candidate := range records {
		if candidate.Handle == cellHandle {
			record = candidate
			break
		}
	}
	if record == nil {
		return ErrUnknownCell
	}
	source := strings.Join(record.Source, "\n")
	return p.manager.UpdateCellOutputs(uri, cellHandle, []OutputData{
		{
			Kind: string(types.OutputKindStream),
			Text: fmt.Sprintf("echo: %s\n", source),
		},
		{
			Kind: string(types.OutputKindDisplay),
			Data: map[string]string{
				"text/plain":    source,
				"text/markdown": "```\n" + source + "\n```",
			},
		},
	})
}

func (p *ScratchProvider) SaveNotebook(ctx context.Context, uri string) (bool, error) {
	return false, nil
}
