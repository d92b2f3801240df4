// devtoken mints a caller bearer token for local testing of the
// authenticated stagepass endpoints.
package main

import (
	"fmt"
	"os"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/services"
	"stagepass/pkg/config"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	var (
		userID string
		secret string
		ttl    time.Duration
	)

	defaults := config.DefaultConfig()
	defaultSecret := os.Getenv("STAGEPASS_JWT_SECRET")
	if defaultSecret == "" {
		defaultSecret = defaults.Auth.JWTSecret
	}

	flagSet := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	flagSet.StringVarP(&userID, "user", "u", "", "user id to put in the token (required)")
	flagSet.StringVar(&secret, "secret", defaultSecret, "HMAC secret shared with the server (env STAGEPASS_JWT_SECRET)")
	flagSet.DurationVar(&ttl, "ttl", defaults.Auth.AccessTokenTTL, "token lifetime")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if userID == "" {
		flagSet.Usage()
		return fmt.Errorf("--user is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	token, err := services.NewAuthService(secret, ttl).GenerateToken(domain.UserID(userID))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}
