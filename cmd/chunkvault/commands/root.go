package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chunkvault",
	Short: "Content-addressed chunked backup and restore engine",
	Long: `chunkvault splits a file or block device snapshot into fixed-size
content-addressed chunks, uploads only the chunks a target's store does
not already hold, and keeps a versioned manifest of every backup so a
prior version can be restored or storage reclaimed by garbage
collection.

Use "chunkvault [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML/JSON/TOML config file (defaults + CHUNKVAULT_* env vars otherwise)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(backupChangedCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(gcCmd)
}
