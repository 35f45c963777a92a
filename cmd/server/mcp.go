package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/hazyhaar/electoral-roll/pkg/api"
	"github.com/mark3labs/mcp-go/server"
)

// cmdMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// never corrupt the protocol stream.
func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	logger := newLogger(slog.LevelWarn)
	cfg := mustLoadConfig(*cfgPath, logger)

	r, st := openRoll(context.Background(), cfg, logger)
	defer st.Close()

	srv := server.NewMCPServer("electoral-roll", "1.0.0", server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, r, cfg.PageSize, logger)

	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp server", "error", err)
		os.Exit(1)
	}
}
