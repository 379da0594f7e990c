// Package config implements the config command.
package config

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/runtime"
)

// Command creates the config command that prints the effective settings.
func Command(rt *runtime.Context) *cobra.Command {
	var showDefault bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if showDefault {
				_, err := out.Write([]byte(conf.GetDefaultConfig()))
				return err
			}
			data, err := rt.Settings.ToYAML()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showDefault, "default", false, "Print the built-in reference configuration instead")

	return cmd
}
