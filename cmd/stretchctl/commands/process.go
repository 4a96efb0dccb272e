package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/di"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	var (
		targetMs   int
		format     string
		bitrate    int
		noPitch    bool
		outPath    string
		storeLocal bool
	)

	cmd := &cobra.Command{
		Use:   "process <file-or-url>",
		Short: "Stretch a source to --target-ms and write the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			source, err := sourceURL(args[0])
			if err != nil {
				return err
			}
			formatOut, err := audio.ParseFormat(format)
			if err != nil {
				return err
			}
			preserve := !noPitch
			req := audio.ProcessRequest{
				AudioURL:         source,
				TargetDurationMs: targetMs,
				PreservePitch:    &preserve,
				FormatOut:        formatOut,
				BitrateKbps:      bitrate,
			}

			if !storeLocal {
				dir, err := os.MkdirTemp("", "stretchctl-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(dir)
				cfg.StoreDir = dir
			}

			container, err := di.InitializeContainer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			defer container.Shutdown(context.WithoutCancel(ctx))

			result, err := container.Processor.Process(ctx, req)
			if err != nil {
				return err
			}

			name := path.Base(result.DownloadURL)
			if outPath == "" {
				outPath = name
			}
			if err := copyArtifact(ctx, container, name, outPath); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*audio.ProcessResult
				Output string `json:"output"`
			}{result, outPath})
		},
	}

	cmd.Flags().IntVarP(&targetMs, "target-ms", "t", 0, "target duration in milliseconds (required)")
	cmd.Flags().StringVarP(&format, "format", "f", string(audio.FormatMP3), "output format: mp3 or wav")
	cmd.Flags().IntVarP(&bitrate, "bitrate", "b", audio.DefaultBitrateKbps, "mp3 bitrate in kbps")
	cmd.Flags().BoolVar(&noPitch, "no-preserve-pitch", false, "change speed by resampling instead of atempo")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: artifact name in the current directory)")
	cmd.Flags().BoolVar(&storeLocal, "keep", false, "also keep the artifact in STORE_DIR")
	_ = cmd.MarkFlagRequired("target-ms")

	return cmd
}

// sourceURL turns a local path into a file:// URL and leaves URLs alone.
func sourceURL(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func copyArtifact(ctx context.Context, container *di.Container, name, dest string) error {
	src, _, err := container.Store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return out.Close()
}
