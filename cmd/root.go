// Package cmd wires the tabula CLI: a server command, a terminal browser,
// and a one-shot CSV uploader.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tabula",
	Short: "tabula: a schema-less CSV record service",
	Long: `tabula ingests arbitrary CSV files into a schema-less record store,
serves the records over HTTP, and lets clients browse and selectively
edit them. Per-row column sets may differ; tabula never enforces a schema.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
