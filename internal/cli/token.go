package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trainerleave/internal/app/server"
)

func newTokenCommand(opts *options) *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			return opts.withServices(cmd.Context(), func(s *server.Services) error {
				if ttl <= 0 {
					ttl = s.Config.AccessTokenTTL
				}
				token, user, err := s.Auth.IssueToken(cmd.Context(), userID, ttl)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(map[string]any{"token": token, "userId": user.ID, "role": user.RoleName, "expiresIn": int(ttl.Seconds())})
				}
				fmt.Fprintln(opts.out, token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to issue the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL)")
	return cmd
}
