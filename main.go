package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/syntlyx/drupal-lsp-server/internal/manager"
	"github.com/syntlyx/drupal-lsp-server/pkg/index"
	"github.com/syntlyx/drupal-lsp-server/pkg/lsp"
	"github.com/syntlyx/drupal-lsp-server/pkg/mcp"
	"github.com/syntlyx/drupal-lsp-server/pkg/server"
	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

func main() {
	// Define flags
	scanMode := flag.Bool("scan", false, "scan a project root, print entity counts and exit")
	serverMode := flag.Bool("server", false, "run REST inspection API over a directory of projects")
	mcpMode := flag.Bool("mcp", false, "run MCP server on stdio for a single project root")
	noWatch := flag.Bool("no-watch", false, "disable the file watcher on modules/custom")

	flag.Parse()

	_ = godotenv.Load()

	// Default root is the working directory; modes accept an explicit
	// path argument.
	root := "."
	args := flag.Args()
	if len(args) >= 1 {
		root = args[0]
	}

	if *serverMode {
		// In server mode the argument is a directory of project roots,
		// one subdirectory per site.
		fmt.Printf("Starting REST inspection server. Projects dir: %s\n", root)

		mgr := manager.NewWorkspaceManager(root, !*noWatch)
		defer mgr.CloseAll()

		srv := server.NewServer(mgr)
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		addr := ":" + port
		if err := srv.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	// === Single Workspace Modes (scan / mcp / lsp) ===

	cfg := workspace.DefaultConfig(root)
	cfg.Watch = !*noWatch
	cfg.ApplyEnv()

	if *scanMode {
		cfg.Watch = false
		w := workspace.New(cfg)
		defer w.Close()

		total := w.ScanAndPopulate()
		fmt.Printf("Scanned %s: %d entities\n", root, total)
		fmt.Printf("  services: %d\n", len(w.ListAllNames(index.KindService)))
		fmt.Printf("  routes:   %d\n", len(w.ListAllNames(index.KindRoute)))
		fmt.Printf("  links:    %d\n", len(w.ListAllNames(index.KindLink)))
		return
	}

	if *mcpMode {
		w := workspace.New(cfg)
		defer w.Close()
		if err := w.Open(); err != nil {
			log.Fatalf("Failed to open workspace: %v", err)
		}

		if err := mcp.Run(context.Background(), w); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}
		return
	}

	// Default: LSP over stdio. The workspace opens on initialize, at
	// the root the client announces.
	srv := lsp.NewServer(os.Stdin, os.Stdout, func(clientRoot string) *workspace.Workspace {
		wcfg := workspace.DefaultConfig(clientRoot)
		wcfg.Watch = !*noWatch
		wcfg.ApplyEnv()
		w := workspace.New(wcfg)
		if err := w.Open(); err != nil {
			log.Printf("workspace open: %v", err)
		}
		return w
	})
	if err := srv.Run(context.Background()); err != nil {
		log.Fatalf("LSP server failed: %v", err)
	}
}
