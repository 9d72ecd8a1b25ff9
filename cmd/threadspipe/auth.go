package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/threadkit/threadspipe/internal/cli"
	"github.com/threadkit/threadspipe/internal/config"
	"github.com/threadkit/threadspipe/internal/threads"
)

// auth and refresh command flags
var (
	redirectURIFlag string
	codeFlag        string
	stateFlag       string
	writeFlag       bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Exchange an authorization code for a long-lived token",
	Long: `Auth walks the Threads OAuth flow for the configured app.

Without --code it prints the authorization URL to visit, then prompts for
the code (the full redirect URL may be pasted instead). The code is
exchanged for a short-lived token and immediately upgraded to a 60-day
long-lived token.

Requires THREADS_APP_ID and THREADS_APP_SECRET.

Examples:
  threadspipe auth --redirect-uri https://example.com/callback
  threadspipe auth --redirect-uri https://example.com/callback --code AQBx7... --write`,
	Run: runAuth,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the long-lived access token",
	Long: `Refresh exchanges the configured long-lived token for a fresh 60-day one.

Tokens must be at least 24 hours old before they can be refreshed. With
--write the new token replaces THREADS_ACCESS_TOKEN in the env file.`,
	Run: runRefresh,
}

func init() {
	authCmd.Flags().StringVar(&redirectURIFlag, "redirect-uri", "", "Redirect URI registered with the app (required)")
	authCmd.Flags().StringVar(&codeFlag, "code", "", "Authorization code from the redirect (prompted for when omitted)")
	authCmd.Flags().StringVar(&stateFlag, "state", "", "Opaque state echoed back on the redirect")
	authCmd.Flags().BoolVar(&writeFlag, "write", false, "Write the token and user id back to the env file")
	_ = authCmd.MarkFlagRequired("redirect-uri")

	refreshCmd.Flags().BoolVar(&writeFlag, "write", false, "Write the refreshed token back to the env file")
}

func runAuth(cmd *cobra.Command, args []string) {
	cfg := cli.LoadConfig(envFileFlag)
	app := cli.InitOAuthApp(cfg)
	ctx := context.Background()

	code := cli.ExtractCode(codeFlag)
	if code == "" {
		fmt.Println("Visit this URL to authorize the app:")
		fmt.Println()
		fmt.Println(app.AuthorizeURL(redirectURIFlag, nil, stateFlag))
		fmt.Println()
		code = cli.PromptForCode()
		if code == "" {
			log.Fatal().Msg("No authorization code provided")
		}
	}

	short, err := app.ExchangeCode(ctx, code, redirectURIFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to exchange authorization code")
	}

	long, err := app.ExchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to exchange for long-lived token")
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("🔑 Long-lived token issued")
	fmt.Println("============================================")
	fmt.Printf("User ID:  %s\n", short.UserID)
	fmt.Printf("Token:    %s\n", long.AccessToken)
	fmt.Printf("Lifetime: %s\n", cli.FormatExpiry(long.ExpiresAt()))

	if writeFlag {
		if err := config.WriteTokens(envFileFlag, long.AccessToken, short.UserID.String()); err != nil {
			log.Fatal().Err(err).Msg("Failed to write tokens to env file")
		}
	}
}

func runRefresh(cmd *cobra.Command, args []string) {
	cfg := cli.LoadConfig(envFileFlag)
	if cfg.AccessToken == "" {
		log.Fatal().Msg("THREADS_ACCESS_TOKEN is not set")
	}
	ctx := context.Background()

	// The refresh grant needs only the token itself, so missing app
	// credentials are fine here.
	app := threads.NewOAuthApp(cfg.AppID, cfg.AppSecret)

	long, err := app.Refresh(ctx, cfg.AccessToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to refresh token")
	}

	fmt.Printf("Token refreshed. Lifetime: %s\n", cli.FormatExpiry(long.ExpiresAt()))

	if writeFlag {
		if err := config.WriteTokens(envFileFlag, long.AccessToken, ""); err != nil {
			log.Fatal().Err(err).Msg("Failed to write token to env file")
		}
	}
}
