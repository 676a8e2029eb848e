package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"quizboard/internal/identity"
)

// NewTokenCmd mints a custom token that a client can exchange for a session.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a custom sign-in token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			issuer, err := identity.NewTokenIssuer([]byte(cfg.Backend.Auth.Secret), cfg.Backend.Auth.Issuer)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(userID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "uid", "", "user id carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
