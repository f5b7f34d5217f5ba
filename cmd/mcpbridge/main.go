package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcpbridge",
		Short: "MCP WebSocket bridge server for the Godot editor",
		Long: `mcpbridge is a persistent-connection command server speaking a minimal
MCP-style JSON protocol over WebSocket.

A client opens one long-lived connection, sends JSON command envelopes,
and receives JSON result envelopes until either side disconnects. The
baseline command set targets Godot editor tooling (project info, file
content, scene nodes, node properties); handlers are pluggable and can
be replaced by the embedding application.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mcpbridge %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
