package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var gcCompactRoot string

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reclaim chunks no retained version references",
	Long: `gc sweeps every target sharing a store and deletes any chunk no
retained Document version reaches. Pass --compact to first drop a
target's history down to its current version, making its prior
versions' exclusively-held chunks eligible for the same sweep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		collector := a.gcCollector()

		if gcCompactRoot != "" {
			if err := collector.Compact(ctx, gcCompactRoot); err != nil {
				return fmt.Errorf("compact %q: %w", gcCompactRoot, err)
			}
		}

		result, err := collector.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "gc: %d reachable, %d stored, %d deleted\n",
			result.Reachable, result.Available, result.Deleted)
		return nil
	},
}

func init() {
	gcCmd.Flags().StringVar(&gcCompactRoot, "compact", "", "drop this target's retained history to its current version before sweeping")
}
