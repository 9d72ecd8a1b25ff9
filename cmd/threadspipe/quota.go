package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/threadkit/threadspipe/internal/cli"
)

// quota command flags
var repliesFlag bool

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the publishing quota for the current window",
	Long: `Quota shows how much of the rolling publishing limit the account has used.

Posts and replies have separate limits; --replies switches to the reply
quota.`,
	Run: runQuota,
}

func init() {
	quotaCmd.Flags().BoolVar(&repliesFlag, "replies", false, "Show the reply quota instead of the post quota")
}

func runQuota(cmd *cobra.Command, args []string) {
	cfg := cli.LoadConfig(envFileFlag)
	client := cli.InitAccountClient(cfg)
	ctx := context.Background()

	quota, err := client.PublishingLimit(ctx, repliesFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch publishing limit")
	}
	if quota == nil {
		log.Fatal().Msg("No quota data returned for this account")
	}

	label := "Posts"
	if repliesFlag {
		label = "Replies"
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("📊 Publishing quota")
	fmt.Println("============================================")
	fmt.Printf("%-9s %s\n", label+":", cli.FormatQuotaBar(quota.Usage, quota.Total))
	fmt.Printf("Window:   %s\n", cli.FormatDurationShort(quota.Window))
	fmt.Printf("Left:     %d\n", quota.Remaining())
}
