// Command tokengen mints bearer tokens for local development against the
// hospital registry API.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	jwttoken "scanbo/internal/jwt_token"
	"scanbo/internal/platform/config"
	id "scanbo/pkg/domain"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	defaults := config.Default()
	var (
		signingKey string
		issuer     string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tokengen <account-id>",
		Short: "Mint a bearer token for an account",
		Long: `tokengen signs an HS256 access token whose subject is the given account id.
Use the same signing key and issuer as the server (JWT_SIGNING_KEY, JWT_ISSUER).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := id.ParseAccountID(args[0])
			if err != nil {
				return err
			}
			token, err := jwttoken.NewJWTService(signingKey, issuer, jwttoken.Audience).
				GenerateAccessToken(accountID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}

	cmd.Flags().StringVar(&signingKey, "key", envOr("JWT_SIGNING_KEY", defaults.Server.JWTSigningKey), "HS256 signing key")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", defaults.Server.JWTIssuer), "Token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
