package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CellKind distinguishes executable cells from narrative content.
type CellKind string

const (
	// CellCode is an executable code cell.
	CellCode CellKind = "code"
	// CellMarkdown is narrative text, inert for execution.
	CellMarkdown CellKind = "markdown"
	// CellOther covers raw, heading and any future cell types.
	CellOther CellKind = "other"
)

// Cell is one unit of notebook content. Index is the 1-based position of
// the cell within its document.
type Cell struct {
	Kind   CellKind `json:"kind"`
	Source string   `json:"source"`
	Index  int      `json:"index"`
}

// Document is the normalized in-memory form of one notebook file,
// independent of the serialization schema it was read from.
type Document struct {
	Path   string `json:"path"`
	Format int    `json:"format"`
	Cells  []Cell `json:"cells"`
}

// CodeCells returns the executable cells in document order.
func (d Document) CodeCells() []Cell {
	var code []Cell
	for _, c := range d.Cells {
		if c.Kind == CellCode {
			code = append(code, c)
		}
	}
	return code
}

// MalformedError indicates the file is not well-formed JSON. This points at
// file corruption, most commonly an unresolved merge.
type MalformedError struct {
	Detail string
}

func (e *MalformedError) Error() string {
	return "malformed notebook: " + e.Detail
}

// SchemaError indicates well-formed JSON that is missing or mistypes a
// required notebook field. This points at an adapter gap or a truncated
// document rather than corruption.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string {
	return "notebook schema: " + e.Detail
}

// rawNotebook accepts both schema families: nbformat 4 carries cells at the
// top level, nbformat 3 nests them under worksheets.
type rawNotebook struct {
	Nbformat   int            `json:"nbformat"`
	Cells      []rawCell      `json:"cells"`
	Worksheets []rawWorksheet `json:"worksheets"`
}

type rawWorksheet struct {
	Cells []rawCell `json:"cells"`
}

// rawCell keeps source fields raw because notebooks serialize source as
// either a string or an array of line strings. Legacy code cells store
// their source under "input".
type rawCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
	Input    json.RawMessage `json:"input"`
}

// Decode parses raw .ipynb bytes into a Document. It returns a
// *MalformedError when the bytes are not valid JSON and a *SchemaError when
// required structural fields are missing. Optional metadata is ignored
// entirely, so its absence never fails a notebook.
func Decode(data []byte, path string) (Document, error) {
	var raw rawNotebook
	if err := json.Unmarshal(data, &raw); err != nil {
		if hasConflictMarkers(data) {
			return Document{}, &MalformedError{Detail: "unresolved merge conflict markers"}
		}
		return Document{}, &MalformedError{Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}

	doc := Document{Path: path, Format: raw.Nbformat}

	var cells []rawCell
	switch {
	case raw.Cells != nil:
		cells = raw.Cells
		if doc.Format == 0 {
			doc.Format = 4
		}
	case raw.Worksheets != nil:
		for _, ws := range raw.Worksheets {
			cells = append(cells, ws.Cells...)
		}
		if doc.Format == 0 {
			doc.Format = 3
		}
	default:
		return Document{}, &SchemaError{Detail: "no cells or worksheets field"}
	}

	doc.Cells = make([]Cell, 0, len(cells))
	for i, rc := range cells {
		cell, err := convertCell(rc, i+1)
		if err != nil {
			return Document{}, err
		}
		doc.Cells = append(doc.Cells, cell)
	}
	return doc, nil
}

func convertCell(rc rawCell, index int) (Cell, error) {
	if rc.CellType == "" {
		return Cell{}, &SchemaError{Detail: fmt.Sprintf("cell %d: missing cell_type", index)}
	}

	// Legacy code cells put their source under "input".
	src := rc.Source
	if src == nil {
		src = rc.Input
	}
	if src == nil {
		return Cell{}, &SchemaError{Detail: fmt.Sprintf("cell %d: missing source", index)}
	}

	text, err := decodeSource(src)
	if err != nil {
		return Cell{}, &SchemaError{Detail: fmt.Sprintf("cell %d: %v", index, err)}
	}

	return Cell{Kind: kindFor(rc.CellType), Source: text, Index: index}, nil
}

func kindFor(cellType string) CellKind {
	switch cellType {
	case "code":
		return CellCode
	case "markdown":
		return CellMarkdown
	default:
		return CellOther
	}
}

// decodeSource accepts a JSON string or an array of line strings.
func decodeSource(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, ""), nil
	}
	return "", fmt.Errorf("source is neither string nor array of strings")
}

func hasConflictMarkers(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "<<<<<<<") ||
			strings.HasPrefix(line, "=======") ||
			strings.HasPrefix(line, ">>>>>>>") {
			return true
		}
	}
	return false
}
