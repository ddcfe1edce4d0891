package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readeck/instafilter/configs"
)

var configOutput string

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVarP(&configOutput, "output", "o", "", "write to a file instead of the standard output")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		if configOutput == "" {
			return configs.Encode(c.OutOrStdout())
		}

		if err := configs.WriteConfig(configOutput); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "configuration written to %s\n", configOutput)
		return nil
	},
}
