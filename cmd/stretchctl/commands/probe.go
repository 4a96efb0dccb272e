package commands

import (
	"fmt"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/ffmpeg"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/observability"

	"github.com/spf13/cobra"
)

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print a file's duration in milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
			if err != nil {
				return err
			}
			tool := ffmpeg.NewTool(ffmpeg.Config{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath}, nil, logger)

			ms, err := tool.ProbeDurationMs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ms)
			return nil
		},
	}
}
