package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
)

func newMatchCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "match TEXT...",
		Short: "Look texts up in the resource catalog and print the matches as JSON",
		Example: `  mcp-l10n-index match "Save changes"
  mcp-l10n-index match --catalog locales "Completed 3/7 days" "Uploading"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := r.consoleLogger()

			a, err := r.open(ctx, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			items := make([]command.BatchItem, len(args))
			for i, text := range args {
				items[i] = command.BatchItem{ID: strconv.Itoa(i + 1), Text: text}
			}

			msgs, err := a.Session.Handle(ctx, command.CheckBatchTranslation{Items: items})
			if err != nil {
				return err
			}

			var results []command.BatchResult
			for _, m := range msgs {
				if res, ok := m.(command.BatchTranslationCheckResult); ok {
					results = res.Data
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(results); err != nil {
				return fmt.Errorf("write matches: %w", err)
			}
			return nil
		},
	}
}
