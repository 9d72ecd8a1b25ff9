package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/threadkit/threadspipe/internal/cli"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated account",
	Long: `Whoami fetches the profile behind the configured token. A successful
fetch doubles as a token validity check.`,
	Run: runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) {
	cfg := cli.LoadConfig(envFileFlag)
	client := cli.InitAccountClient(cfg)
	ctx := context.Background()

	profile, err := client.Profile(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch profile - the token may be expired")
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("👤 Authenticated account")
	fmt.Println("============================================")
	fmt.Printf("Username: @%s\n", profile.Username)
	if profile.Name != "" {
		fmt.Printf("Name:     %s\n", profile.Name)
	}
	fmt.Printf("User ID:  %s\n", profile.ID)
	if profile.Biography != "" {
		fmt.Printf("Bio:      %s\n", profile.Biography)
	}
}
