package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreVersion int

var restoreCmd = &cobra.Command{
	Use:   "restore <root> <output-path>",
	Short: "Restore a target's current or a prior version to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootName, outPath := args[0], args[1]
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var version *int
		if cmd.Flags().Changed("version") {
			v := restoreVersion
			version = &v
		}

		if err := a.engine.Restore(ctx, rootName, version, outPath); err != nil {
			return fmt.Errorf("restore %q: %w", rootName, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "restored %q to %s\n", rootName, outPath)
		return nil
	},
}

func init() {
	restoreCmd.Flags().IntVar(&restoreVersion, "version", 0, "restore this retained history index (0 = oldest retained) instead of the current version")
}
