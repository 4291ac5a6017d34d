package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
)

// stateView is the printed form of the persisted state.
type stateView struct {
	Shared  map[string]any    `json:"shared"`
	Private map[string]string `json:"private"`
}

func newStateCmd(r *root) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted shared and private state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bridge, err := store.Open(ctx, r.cfg.StoreConfig())
			if err != nil {
				return err
			}
			defer bridge.Close()

			view := stateView{Shared: map[string]any{}, Private: map[string]string{}}

			for _, key := range []string{store.KeyState, store.KeyBatchResults, store.KeyBatchContext} {
				v, ok, err := bridge.Get(ctx, store.Shared, key)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				if json.Valid([]byte(v)) && key != store.KeyBatchContext {
					view.Shared[key] = json.RawMessage(v)
				} else {
					view.Shared[key] = v
				}
			}

			for _, key := range store.SettingsKeys() {
				v, ok, err := bridge.Get(ctx, store.Private, key)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				if key == store.KeyAPIKey && !reveal {
					v = mask(v)
				}
				view.Private[key] = v
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(view); err != nil {
				return fmt.Errorf("write state: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secrets in full")
	return cmd
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
