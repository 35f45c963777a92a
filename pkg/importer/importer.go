// Package importer loads voter spreadsheets into the roll: from a local
// file, an upload, a URL, or a watched drop directory.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/electoral-roll/pkg/roll"
	"github.com/hazyhaar/electoral-roll/pkg/sheet"
)

// Importer parses spreadsheets and appends their rows to a roll.
type Importer struct {
	roll   *roll.Roll
	opts   sheet.ReadOptions
	logger *slog.Logger
}

// New returns an Importer writing into r. opts applies to CSV input.
func New(r *roll.Roll, opts sheet.ReadOptions, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{roll: r, opts: opts, logger: logger}
}

// Supported reports whether name has a spreadsheet extension the importer
// can read.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}

// ImportReader parses r as the spreadsheet called name and imports every
// data row. It returns the number of voters added.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader, name string) (int, error) {
	rows, err := sheet.ReadRows(r, name, im.opts)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	n, err := im.roll.Import(ctx, rows)
	if err != nil {
		return n, err
	}
	im.logger.Info("spreadsheet imported", "file", name, "rows", n, "total", im.roll.Count())
	return n, nil
}

// ImportFile imports the spreadsheet at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return im.ImportReader(ctx, f, filepath.Base(path))
}

// ImportURL downloads a spreadsheet, or a ZIP of spreadsheets, into a
// scratch directory and imports it.
func (im *Importer) ImportURL(ctx context.Context, url string) (int, error) {
	tmp, err := os.MkdirTemp("", "roll-import-*")
	if err != nil {
		return 0, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	name := filepath.Base(strings.SplitN(url, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		name = "download.csv"
	}
	dest := filepath.Join(tmp, name)
	if err := downloadFile(ctx, url, dest); err != nil {
		return 0, err
	}

	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		return im.ImportFile(ctx, dest)
	}

	extractDir := filepath.Join(tmp, "x")
	if err := ensureDir(extractDir); err != nil {
		return 0, err
	}
	paths, err := unzipFile(dest, extractDir)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range paths {
		n, err := im.ImportFile(ctx, p)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
