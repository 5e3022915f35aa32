package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/notebook-functions/internal/bridge"
	"github.com/mvp-joe/notebook-functions/internal/mcp"
)

var (
	mcpDirFlag    string
	mcpNoExecFlag bool
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for notebook functions",
	Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
list, read, describe, search and call the functions defined in the notebooks
of a project.

The MCP server:
- Indexes every notebook under --dir for full-text search
- Re-indexes notebooks as they are saved
- Calls functions in a Python interpreter (disable with --no-exec)
- Communicates via stdio (standard MCP transport)

Example:
  nbfunc mcp
  nbfunc mcp --dir notebooks --no-exec`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpDirFlag, "dir", ".", "project directory")
	mcpCmd.Flags().BoolVar(&mcpNoExecFlag, "no-exec", false, "do not offer notebook_exec_function")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(mcpDirFlag)
	if err != nil {
		return err
	}

	// Stdout carries the protocol
	fmt.Fprintf(os.Stderr, "nbfunc MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project: %s\n", mcpDirFlag)

	var b *bridge.Bridge
	if !mcpNoExecFlag {
		b, err = newBridge(cfg)
		if err != nil {
			// Read-only tools still work without an interpreter
			log.Printf("Warning: notebook_exec_function disabled: %v", err)
		} else {
			defer b.Close()
			fmt.Fprintf(os.Stderr, "Python runtime: %s\n", cfg.Python.Runtime)
		}
	}
	fmt.Fprintf(os.Stderr, "\n")

	server, err := mcp.NewMCPServer(ctx, cfg, mcpDirFlag, b)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
