package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/tabula/internal/client"
)

func init() {
	rootCmd.AddCommand(uploadCmd)
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv> [server-url]",
	Short: "Upload a CSV file to a tabula server",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		base := "http://localhost:5000"
		if len(args) == 2 {
			base = args[1]
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		res, err := client.New(base).Upload(cmd.Context(), filepath.Base(path), raw)
		if err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}
		fmt.Println(res.Message)
		return nil
	},
}
