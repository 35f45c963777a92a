package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/electoral-roll/pkg/roll"
	"github.com/hazyhaar/electoral-roll/pkg/tui"
)

func cmdBrowse(args []string) {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	// The terminal belongs to the UI; only errors reach stderr.
	logger := newLogger(slog.LevelError)
	cfg := mustLoadConfig(*cfgPath, logger)

	r, st := openRoll(context.Background(), cfg, logger)
	defer st.Close()

	err := tui.Run(r,
		roll.WithDelay(cfg.Debounce),
		roll.WithPageSize(cfg.PageSize),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
