// Package history implements the history command.
package history

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/snapquote/internal/datastore"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/runtime"
)

// Command creates the history command that lists recent runs as JSON lines.
func Command(rt *runtime.Context) *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch kind {
			case "", datastore.KindAudio, datastore.KindDetect:
			default:
				return errors.Newf("unknown run kind %q, want audio or detect", kind).
					Component("cli").
					Category(errors.CategoryValidation).
					Build()
			}

			store, err := rt.Store()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.Newf("run history is disabled, set history.enabled in the config").
					Component("cli").
					Category(errors.CategoryConfiguration).
					Build()
			}

			runs, err := store.Recent(kind, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := range runs {
				if err := runtime.WriteJSON(out, &runs[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only show runs of this kind: audio or detect")
	cmd.Flags().IntVar(&limit, "limit", datastore.DefaultRecentLimit, "Maximum number of runs")

	return cmd
}
