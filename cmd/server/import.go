package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hazyhaar/electoral-roll/pkg/importer"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	file := fs.String("file", "", "spreadsheet to import (.csv, .tsv, .xlsx, .xls)")
	url := fs.String("url", "", "download and import a spreadsheet or a ZIP of spreadsheets")
	encoding := fs.String("encoding", "", "CSV character encoding (overrides config)")
	fs.Parse(args)

	if (*file == "") == (*url == "") {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  roll import -file <path> [-encoding windows-1252]")
		fmt.Fprintln(os.Stderr, "  roll import -url <https://...>")
		os.Exit(1)
	}

	logger := newLogger(slog.LevelInfo)
	cfg := mustLoadConfig(*cfgPath, logger)
	if *encoding != "" {
		cfg.Encoding = *encoding
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	r, st := openRoll(ctx, cfg, logger)
	defer st.Close()
	im := importer.New(r, readOptions(cfg), logger)

	var (
		n   int
		err error
		src = *file
	)
	if *url != "" {
		src = *url
		n, err = im.ImportURL(ctx, *url)
	} else {
		n, err = im.ImportFile(ctx, *file)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%s] ERROR: %v\n", src, err)
		os.Exit(1)
	}
	fmt.Printf("[%s] OK: %d voters added, %d in roll\n", src, n, r.Count())
}
