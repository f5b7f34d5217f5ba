package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godotkit/mcpbridge/pkg/command"
	"github.com/godotkit/mcpbridge/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		host     string
		port     int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))
			slog.SetDefault(logger)

			registry := command.NewBaseline(logger)

			srv := server.New(&server.ServerConfig{
				Address: fmt.Sprintf("%s:%d", host, port),
			}, registry)

			return srv.Run()
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "host address to bind the server")
	cmd.Flags().IntVar(&port, "port", 8765, "port number to bind the server")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logging level (debug, info, warn, error)")

	return cmd
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", s)
	}
}
