package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/agentic-research/tabula/internal/client"
	"github.com/agentic-research/tabula/internal/tui"
)

var browseEditable []string

func init() {
	browseCmd.Flags().StringSliceVar(&browseEditable, "editable", nil,
		"editable field names (default: the stock whitelist)")
	rootCmd.AddCommand(browseCmd)
}

var browseCmd = &cobra.Command{
	Use:   "browse [server-url]",
	Short: "Browse and edit records in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base := "http://localhost:5000"
		if len(args) == 1 {
			base = args[0]
		}

		m := tui.New(client.New(base), browseEditable)
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("run browser: %w", err)
		}
		return nil
	},
}
