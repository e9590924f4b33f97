// Package cmd implements the soniclink command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd is the base command for soniclink.
var rootCmd = &cobra.Command{
	Use:   "soniclink",
	Short: "soniclink — ultrasound phased-array control over EtherCAT",
	Long: `Soniclink drives chains of ultrasound transducer-array units over an
EtherCAT segment: it synchronizes the units, uploads drive patterns,
modulation waveforms and spatio-temporal sequences, and keeps the cyclic
exchange healthy through per-device recovery.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "soniclink.ini", "config file")
}
