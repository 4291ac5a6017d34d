package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bad33ndj3/mcp-l10n-index/internal/mcp"
)

func newSendCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "send [COMMAND]",
		Short: "Handle one protocol command against the document and print the replies",
		Long: `send restores the persisted session, handles one JSON command (from the
argument or stdin), writes the document back and prints the outbound messages.`,
		Example: `  mcp-l10n-index send '{"type":"add-selection"}'
  echo '{"type":"clear-highlights"}' | mcp-l10n-index send`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read command: %w", err)
				}
				raw = string(data)
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return fmt.Errorf("command is required")
			}

			a, err := r.open(ctx, r.consoleLogger())
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.Session.HandleRaw(ctx, []byte(raw))
			if err != nil {
				return err
			}
			if err := a.Commit(); err != nil {
				return fmt.Errorf("save document: %w", err)
			}

			out, err := mcp.RenderMessages(msgs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}
