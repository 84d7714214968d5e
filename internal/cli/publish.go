package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"quiz-tournament-service/internal/config"
	transport "quiz-tournament-service/internal/transport/http"
)

// NewPublishResultsCmd settles one tournament against the configured
// database and prints the settlement.
func NewPublishResultsCmd(configPath *string) *cobra.Command {
	var tournamentID int64
	cmd := &cobra.Command{
		Use:   "publish-results",
		Short: "Rank a tournament and pay out its prizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tournamentID <= 0 {
				return errors.New("--tournament is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errNoPostgres
			}
			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			svc, err := newServices(b, cfg, slog.Default())
			if err != nil {
				return err
			}
			settlement, err := svc.Settlement.PublishResults(cmd.Context(), tournamentID)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(settlement, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().Int64Var(&tournamentID, "tournament", 0, "tournament id")
	return cmd
}

// NewIssueTokenCmd mints a bearer token for an existing user id. Useful for
// local testing while sign-in lives in another service.
func NewIssueTokenCmd(configPath *string) *cobra.Command {
	var (
		userID  int64
		isAdmin bool
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Print a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret (or JWT_SECRET) must be set")
			}
			token, err := transport.NewAuthenticator(cfg.Auth.JWTSecret).IssueToken(userID, isAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant admin rights")
	cmd.Flags().DurationVar(&ttl, "ttl", 7*24*time.Hour, "token lifetime")
	return cmd
}
