package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const soniclinkVersion = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the soniclink version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "soniclink version %s\n", soniclinkVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
