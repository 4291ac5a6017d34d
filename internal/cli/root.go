// Package cli implements the command line of the scout.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bad33ndj3/mcp-l10n-index/internal/app"
)

// root carries state shared by the subcommands.
type root struct {
	v       *viper.Viper
	cfg     *app.Config
	verbose bool
	stderr  io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	r := &root{v: viper.New(), stderr: os.Stderr}

	cmd := &cobra.Command{
		Use:   "mcp-l10n-index",
		Short: "Find localization keys for the texts of a design document",
		Long: `mcp-l10n-index extracts text objects from a design document, highlights them
and looks each text up in a multilingual resource catalog, so designers can
reuse existing translation keys instead of inventing new ones.

Configuration is read from l10n.yaml, L10N_* environment variables and flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(r.v)
			if err != nil {
				return err
			}
			r.cfg = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&r.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.String("state-dir", "", "Directory for state and log files")
	flags.String("catalog", "", "Resource catalog file or directory")
	flags.String("document", "", "Document file to work on")
	flags.String("store", "", "Persistence backend: memory, file, sqlite or redis")
	flags.String("language", "", "Language of notifications (en, ko)")

	r.bind("state_dir", flags.Lookup("state-dir"))
	r.bind("catalog.path", flags.Lookup("catalog"))
	r.bind("document.path", flags.Lookup("document"))
	r.bind("store.backend", flags.Lookup("store"))
	r.bind("language", flags.Lookup("language"))

	cmd.AddCommand(
		newServeCmd(r),
		newMatchCmd(r),
		newSendCmd(r),
		newStateCmd(r),
	)
	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (r *root) bind(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(r.v.BindPFlag(key, flag))
}

// consoleLogger logs to stderr for interactive commands.
func (r *root) consoleLogger() *slog.Logger {
	level := slog.LevelWarn
	if r.verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(r.stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// open wires an app with logger and restores the persisted session.
func (r *root) open(ctx context.Context, logger *slog.Logger) (*app.App, error) {
	a, err := app.New(ctx, r.cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if _, err := a.Session.Restore(ctx); err != nil {
		logger.Warn("session restored with store errors", "error", err)
	}
	return a, nil
}
