package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/EgorLis/my-assets/internal/auth/token"
	"github.com/EgorLis/my-assets/internal/config"
)

var (
	tokenOwner string
	tokenLogin string
	tokenTTL   string
)

// dev-токен: в проде токены выдаёт сервис аутентификации
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development JWT for an owner id",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return err
		}
		owner := uuid.New()
		if tokenOwner != "" {
			if owner, err = uuid.Parse(tokenOwner); err != nil {
				return fmt.Errorf("--owner: %w", err)
			}
		}
		ttl := cfg.AuthTokenTTL
		if tokenTTL != "" {
			if ttl, err = parseAge(tokenTTL); err != nil {
				return err
			}
		}
		raw, claims, err := token.New(cfg.AuthJWTSecret, cfg.AuthIssuer, ttl).Issue(cmd.Context(), owner, tokenLogin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "owner:   %s\nexpires: %s\n%s\n", claims.OwnerID, claims.ExpiresAt.Format(time.RFC3339), raw)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOwner, "owner", "", "owner uuid (random when empty)")
	tokenCmd.Flags().StringVar(&tokenLogin, "login", "dev", "login claim")
	tokenCmd.Flags().StringVar(&tokenTTL, "ttl", "", "override AUTH_TOKEN_TTL")
}

func parseAge(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}
