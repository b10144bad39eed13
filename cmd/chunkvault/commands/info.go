package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <root>",
	Short: "Show a target's current size and retained version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootName := args[0]
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.engine.Info(ctx, rootName)
		if err != nil {
			return fmt.Errorf("info %q: %w", rootName, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: current version %d bytes, taken %s\n",
			rootName, info.CurrentSize, time.Unix(info.CurrentTimestamp, 0).UTC().Format(time.RFC3339))
		for i, v := range info.History {
			fmt.Fprintf(out, "  retained[%d]: %s, %d bytes held only by this version\n",
				i, time.Unix(v.Timestamp, 0).UTC().Format(time.RFC3339), v.RetainedBytes)
		}
		return nil
	},
}
