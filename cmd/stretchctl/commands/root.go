// Package commands implements the stretchctl CLI.
package commands

import (
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	cfg     *config.Config
)

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stretchctl",
		Short:         "Stretch audio files to an exact duration",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return err
			}
			// local files are the main use of the CLI
			loaded.AllowFileURLs = true
			if verbose {
				loaded.LogLevel = "debug"
			} else if loaded.LogLevel == "" || loaded.LogLevel == "info" {
				loaded.LogLevel = "warn"
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline stages")

	root.AddCommand(processCmd(), probeCmd(), tokenCmd())
	return root
}
