// Command chunkvault is the CLI entrypoint for the backup/restore engine.
package main

import (
	"fmt"
	"os"

	"github.com/prn-tf/chunkvault/cmd/chunkvault/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
