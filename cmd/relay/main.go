// Relay: developer-workflow orchestration MCP server
//
// Relay exposes workflow tools (task sessions, handoffs, review
// readiness) over stdio MCP while acting as an MCP client of three
// backends: an issue tracker, a code host, and a persistence store.
//
// Usage:
//
//	relay serve              # Start the MCP server (stdio transport)
//	relay version            # Print the version
package main

import (
	"fmt"
	"os"

	"github.com/devrelay/relay/internal/config"
	relayserver "github.com/devrelay/relay/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "relay",
		Short:         "Developer-workflow orchestration MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"path to the config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdio.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "relay": {
        "command": "relay",
        "args": ["serve"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relay v%s\n", relayserver.Version)
		},
	}

	root.AddCommand(serve, version)
	return root
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, cleanup, err := relayserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// ServeStdio handles SIGINT/SIGTERM itself; it returns when the
	// client closes the transport or the process is signalled.
	return server.ServeStdio(s)
}
