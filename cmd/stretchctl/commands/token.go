package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/auth"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		roles   []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			gen, err := auth.NewJWTGenerator(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			token, err := gen.GenerateToken(subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim, repeatable")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
