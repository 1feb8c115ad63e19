package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	authsvc "github.com/ivankudzin/giftexchange/internal/services/auth"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCommand mints an admin bearer token with the configured secret.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		userID int64
		role   string
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.JWTAccessTTL
			}

			manager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, ttl)
			token, expiresAt, err := manager.GenerateAccessToken(authsvc.Identity{
				UserID: userID,
				Role:   role,
				Name:   name,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "mint token", err)
			}

			out := tokenOutput{Token: token, Role: authsvc.NormalizeRole(role), ExpiresAt: expiresAt}
			return render(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, token)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "admin user id (required)")
	cmd.Flags().StringVar(&role, "role", authsvc.RoleModerator, "OWNER or MODERATOR")
	cmd.Flags().StringVar(&name, "name", "", "display name stored in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.jwt_access_ttl)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
