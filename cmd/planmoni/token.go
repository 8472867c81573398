package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/planmoni/planmoni-backend/internal/auth"
	"github.com/planmoni/planmoni-backend/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token signed with JWT_SECRET (for local testing)",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		cfg := config.Load()
		if cfg.Env == "prod" {
			return fmt.Errorf("refusing to mint tokens with APP_ENV=prod")
		}
		tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, ttl)
		tok, exp, err := tm.Issue(userID, "authenticated", email)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "user id to put in the sub claim")
	tokenCmd.Flags().String("email", "", "optional email claim")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
}
