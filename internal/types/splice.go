package types

// CellSplice is one contiguous edit to a document's cell list as carried on
// the wire. Start indexes the list before any splice in the same batch is
// applied; batches are applied left to right with a running offset.
type CellSplice struct {
	Start       int           `json:"start"`
	DeleteCount int           `json:"delete_count"`
	Cells       []*CellRecord `json:"cells,omitempty"`
}

// OutputSplice is one contiguous edit to a single cell's output list.
type OutputSplice struct {
	Start       int                  `json:"start"`
	DeleteCount int                  `json:"delete_count"`
	Outputs     []*TransformedOutput `json:"outputs,omitempty"`
}

func CloneCellSplice(s CellSplice) CellSplice {
	copy := s
	if len(s.Cells) > 0 {
		copy.Cells = make([]*CellRecord, 0, len(s.Cells))
		for _, cell := range s.Cells {
			copy.Cells = append(copy.Cells, CloneCellRecord(cell))
		}
	}
	return copy
}

func CloneOutputSplice(s OutputSplice) OutputSplice {
	copy := s
	if len(s.Outputs) > 0 {
		copy.Outputs = make([]*TransformedOutput, 0, len(s.Outputs))
		for _, out := range s.Outputs {
			copy.Outputs = append(copy.Outputs, CloneTransformedOutput(out))
		}
	}
	return copy
}
