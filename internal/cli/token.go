package cli

import (
	"io"
	"time"

	"fluxao-backend-go/internal/identity"

	"github.com/spf13/cobra"
)

type TokenOutput struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// NewTokenCommand mints an access token signed with the configured secret,
// for local development against the HTTP API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			resolver := identity.Resolver{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer, AccessTTL: ttl}
			token, exp, err := resolver.CreateAccessToken(subject, roles)
			if err != nil {
				return err
			}
			out := TokenOutput{AccessToken: token, ExpiresAt: exp}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(out, func(w io.Writer) {
				line(w, "%s", token)
			})
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "identity id (required)")
	cmd.Flags().StringSliceVar(&roles, "role", []string{"USER"}, "role codes, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
