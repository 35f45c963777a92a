package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/electoral-roll/pkg/api"
	"github.com/hazyhaar/electoral-roll/pkg/chassis"
	"github.com/hazyhaar/electoral-roll/pkg/config"
	"github.com/hazyhaar/electoral-roll/pkg/importer"
	"github.com/hazyhaar/electoral-roll/pkg/roll"
	"github.com/hazyhaar/electoral-roll/pkg/sheet"
	"github.com/hazyhaar/electoral-roll/pkg/store"
	"golang.org/x/sync/errgroup"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "browse":
		cmdBrowse(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: roll <command> [flags]

Commands:
  serve    Start the HTTP API and the drop-directory watcher
  import   Import a spreadsheet file or URL into the roll
  export   Write the (filtered) roll to an XLSX or CSV file
  mcp      Serve MCP tools over stdio
  browse   Search the roll in the terminal
`)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// mustLoadConfig loads the config or exits.
func mustLoadConfig(path string, logger *slog.Logger) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

// openRoll opens the store and loads the roll from it.
func openRoll(ctx context.Context, cfg config.Config, logger *slog.Logger) (*roll.Roll, *store.Store) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	r := roll.New(st, logger)
	if err := r.Load(ctx); err != nil {
		st.Close()
		logger.Error("load roll", "error", err)
		os.Exit(1)
	}
	return r, st
}

func readOptions(cfg config.Config) sheet.ReadOptions {
	return sheet.ReadOptions{Encoding: cfg.Encoding, Delimiter: cfg.Delimiter}
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	debug := fs.Bool("debug", false, "log every endpoint call")
	fs.Parse(args)

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := newLogger(level)
	cfg := mustLoadConfig(*cfgPath, logger)

	// SIGINT/SIGTERM: graceful shutdown.
	// SIGHUP: reload the roll from the store.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, st := openRoll(ctx, cfg, logger)
	defer st.Close()
	im := importer.New(r, readOptions(cfg), logger)

	if cfg.ExportKey == "" {
		logger.Warn("export_key not set, exports are disabled")
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(api.Deps{
			Roll:     r,
			Booths:   st,
			Importer: im,
			Exporter: sheet.Exporter{Key: cfg.ExportKey},
			PageSize: cfg.PageSize,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	tlsCfg, err := chassis.TLSConfig(chassis.TLSOptions{
		CertFile:   cfg.TLS.CertFile,
		KeyFile:    cfg.TLS.KeyFile,
		SelfSigned: cfg.TLS.SelfSigned,
		Hosts:      cfg.TLS.Hosts,
	})
	if err != nil {
		logger.Error("tls setup", "error", err)
		os.Exit(1)
	}
	srv.TLSConfig = tlsCfg

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-sighup:
				logger.Info("SIGHUP received, reloading roll")
				if err := r.Reload(gctx); err != nil {
					logger.Error("reload failed", "error", err)
				}
			}
		}
	})

	if cfg.WatchDir != "" {
		w := importer.NewWatcher(cfg.WatchDir, im, logger, importer.WithSettle(cfg.Settle))
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		logger.Info("roll listening", "addr", cfg.Addr, "tls", tlsCfg != nil, "voters", r.Count())
		var err error
		if tlsCfg != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
