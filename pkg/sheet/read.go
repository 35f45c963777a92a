// Package sheet reads and writes voter spreadsheets (CSV, XLSX, XLS).
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var (
	// ErrEmptySheet is returned when a file holds no header row.
	ErrEmptySheet = errors.New("worksheet is empty")
	// ErrUnsupportedFormat is returned for an unknown file extension.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// maxXLSRows bounds legacy .xls reads.
const maxXLSRows = 200000

// ReadOptions tunes CSV parsing. Binary formats ignore it.
type ReadOptions struct {
	Encoding  string // e.g. "windows-1252"; empty or utf-8 means no transcoding
	Delimiter string // first rune is used; default ","
}

// ReadRows parses a spreadsheet into one map per data row, keyed by the
// trimmed header cell. The format is chosen from filename's extension.
// Blank rows and columns with an empty header are skipped.
func ReadRows(r io.Reader, filename string, opts ReadOptions) ([]map[string]string, error) {
	var (
		grid [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv", ".tsv", ".txt":
		if ext == ".tsv" && opts.Delimiter == "" {
			opts.Delimiter = "\t"
		}
		grid, err = readCSV(r, opts)
	case ".xlsx", ".xlsm":
		grid, err = readXLSX(r)
	case ".xls":
		grid, err = readXLS(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid)
}

func readCSV(r io.Reader, opts ReadOptions) ([][]string, error) {
	reader := r
	if enc := opts.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(r, e.NewDecoder())
	}

	cr := csv.NewReader(reader)
	if d := opts.Delimiter; d != "" {
		cr.Comma = []rune(d)[0]
	}
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return grid, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	grid, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return grid, nil
}

func readXLS(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xls: %w", err)
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	return wb.ReadAllCells(maxXLSRows), nil
}

func rowsFromGrid(grid [][]string) ([]map[string]string, error) {
	if len(grid) == 0 {
		return nil, ErrEmptySheet
	}
	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]map[string]string, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		row := make(map[string]string, len(header))
		blank := true
		for i, h := range header {
			if h == "" || i >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[i])
			if cell != "" {
				blank = false
			}
			row[h] = cell
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
