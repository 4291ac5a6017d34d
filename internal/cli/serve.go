package cli

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bad33ndj3/mcp-l10n-index/internal/app"
)

func newServeCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the scout as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// IMPORTANT: MCP stdio servers must log to stderr only (for standard log package).
			log.SetOutput(os.Stderr)

			level := app.ParseLevel(r.cfg.Log.Level)
			if r.verbose {
				level = slog.LevelDebug
			}
			logger, logFile, err := app.SetupLogger(r.cfg.StateDir, level)
			if err != nil {
				log.Printf("Warning: failed to setup file logger: %v", err)
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			} else {
				defer logFile.Close()
			}

			logger.Info("server starting",
				"name", app.ServerName,
				"version", app.ServerVersion,
				"state_dir", r.cfg.StateDir,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, r.cfg, logger)
			if err != nil {
				logger.Error("failed to start", "error", err)
				return err
			}
			defer a.Close()

			return a.Serve(ctx)
		},
	}
}
