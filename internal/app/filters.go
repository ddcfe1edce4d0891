package app

import (
	"fmt"
	"math"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/readeck/instafilter/pkg/filters"
)

func init() {
	rootCmd.AddCommand(filtersCmd)
}

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the available filters",
	Args:  cobra.NoArgs,
	RunE:  runFilters,
}

func runFilters(c *cobra.Command, _ []string) error {
	out := c.OutOrStdout()
	key := color.New(color.Bold, color.FgHiWhite)
	param := color.New(color.FgCyan)

	for _, d := range filters.List() {
		lo, _ := d.Parameter.Native(0)
		hi, _ := d.Parameter.Native(1)

		key.Fprintf(out, "%-14s", d.Key)
		fmt.Fprintf(out, " %-15s ", d.Label)
		param.Fprintf(out, "%-9s", d.Parameter)
		fmt.Fprintf(out, " %s..%s\n", formatNative(lo), formatNative(hi))
	}
	return nil
}

func formatNative(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
