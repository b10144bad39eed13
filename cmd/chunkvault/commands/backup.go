package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup <root> <input-path>",
	Short: "Back up a file or snapshot to a named target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootName, inputPath := args[0], args[1]
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var result struct {
			uploaded, deduped int
			bytes             uint64
		}
		err = a.withLock(ctx, rootName, func(ctx context.Context) error {
			r, err := a.engine.Backup(ctx, rootName, inputPath)
			if err != nil {
				return err
			}
			result.uploaded, result.deduped, result.bytes = r.ChunksUploaded, r.ChunksDeduped, r.BytesUploaded
			return nil
		})
		if err != nil {
			return fmt.Errorf("backup %q: %w", rootName, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "backed up %q: %d chunks uploaded, %d deduped, %d bytes uploaded\n",
			rootName, result.uploaded, result.deduped, result.bytes)
		return nil
	},
}
