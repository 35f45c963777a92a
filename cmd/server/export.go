package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/electoral-roll/pkg/search"
	"github.com/hazyhaar/electoral-roll/pkg/sheet"
)

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	out := fs.String("out", "voters.xlsx", "output file; the extension picks the format (.xlsx or .csv)")
	key := fs.String("key", os.Getenv("ROLL_EXPORT_KEY"), "export key")
	term := fs.String("search", "", "search terms")
	booth := fs.String("booth", "", "booth number filter")
	station := fs.String("station", "", "polling station address filter")
	village := fs.String("village", "", "village filter")
	sortBy := fs.String("sort", "", "sort order: name or serial")
	fs.Parse(args)

	logger := newLogger(slog.LevelInfo)
	cfg := mustLoadConfig(*cfgPath, logger)
	exp := sheet.Exporter{Key: cfg.ExportKey}
	if err := exp.Check(*key); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(*out)), ".")
	if format != sheet.FormatXLSX && format != sheet.FormatCSV {
		fmt.Fprintf(os.Stderr, "ERROR: unsupported output format %q (use .xlsx or .csv)\n", format)
		os.Exit(1)
	}

	ctx := context.Background()
	r, st := openRoll(ctx, cfg, logger)
	defer st.Close()

	q := search.Query{
		Search: *term,
		Sort:   *sortBy,
		Filters: search.Filters{
			search.FilterBoothNumber:           *booth,
			search.FilterPollingStationAddress: *station,
			search.FilterVillage:               *village,
		},
	}
	voters, err := r.Select(q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if err := exp.Export(f, *key, format, voters); err != nil {
		f.Close()
		os.Remove(*out)
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d voters written to %s\n", len(voters), *out)
}
