package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ucuzla/pricescan/internal/compare"
)

var compareCmd = &cobra.Command{
	Use:   "compare <query>",
	Short: "Compare a product's price across all retailers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return eris.New("compare: query must not be empty")
		}

		svc := compare.NewService(buildAdapters(cfg)...)
		result := svc.ComparePrices(cmd.Context(), query)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
