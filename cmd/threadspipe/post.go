package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/threadkit/threadspipe/internal/cli"
	"github.com/threadkit/threadspipe/internal/config"
	"github.com/threadkit/threadspipe/internal/media"
	"github.com/threadkit/threadspipe/internal/pipe"
	"github.com/threadkit/threadspipe/internal/textgen"
)

// post command flags
var (
	textFlag         string
	filesFlag        []string
	captionsFlag     []string
	tagsFlag         []string
	replyToFlag      string
	quoteFlag        string
	persistQuoteFlag bool
	noChainFlag      bool
	persistTagsFlag  bool
	countriesFlag    []string
	linksFlag        []string
	replyControlFlag string
	composeFlag      bool
	modelFlag        string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish a post or reply chain",
	Long: `Post publishes text and media to the configured Threads account.

Text over 500 characters is split into a reply chain. Media may be given as
local file paths (staged on temporary storage) or as public URLs; more than
20 items are spread across several carousel posts. With --compose the text
is treated as an instruction and Gemini drafts the post, grounded in the
first attached image when one is given.

Examples:
  threadspipe post --text "Hello world"
  threadspipe post --text "Trip photos" --file a.jpg --file b.jpg --caption "Sunrise over the bay" --caption ""
  threadspipe post --text "Only for these markets" --country US --country CA
  threadspipe post --text "Read the full story" --link https://example.com/blog/v2
  threadspipe post --compose --text "short post announcing our beta signup" --file hero.png`,
	Run: runPost,
}

func init() {
	postCmd.Flags().StringVarP(&textFlag, "text", "t", "", "Post text (or the drafting instruction with --compose)")
	postCmd.Flags().StringArrayVarP(&filesFlag, "file", "f", nil, "Media file path or URL (repeatable, order preserved)")
	postCmd.Flags().StringArrayVar(&captionsFlag, "caption", nil, "Alt text for the media item at the same position (repeatable, empty skips one)")
	postCmd.Flags().StringArrayVar(&tagsFlag, "tag", nil, "Hashtag to append, one per chain segment (repeatable)")
	postCmd.Flags().StringVar(&replyToFlag, "reply-to", "", "Publish as a reply to this post id")
	postCmd.Flags().StringVar(&quoteFlag, "quote", "", "Quote this post id")
	postCmd.Flags().BoolVar(&persistQuoteFlag, "persist-quote", false, "Attach the quoted post to every chain segment, not just the first")
	postCmd.Flags().BoolVar(&noChainFlag, "no-chain", false, "Never chain: publish only the first 500 characters and first 20 media")
	postCmd.Flags().BoolVar(&persistTagsFlag, "persist-tags", false, "Repeat the last tag on segments that have none of their own")
	postCmd.Flags().StringArrayVar(&countriesFlag, "country", nil, "Restrict visibility to this ISO 3166-1 alpha-2 country (repeatable)")
	postCmd.Flags().StringArrayVar(&linksFlag, "link", nil, "Link attachment for text-only segments (repeatable, positional)")
	postCmd.Flags().StringVar(&replyControlFlag, "reply-control", "", "Who can reply: everyone, accounts_you_follow or mentioned_only")
	postCmd.Flags().BoolVar(&composeFlag, "compose", false, "Draft the post text with Gemini from the --text instruction")
	postCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model for --compose (default: GEMINI_MODEL or "+textgen.DefaultModel+")")
}

func runPost(cmd *cobra.Command, args []string) {
	cfg := cli.LoadConfig(envFileFlag)
	ctx := context.Background()

	sources, firstImage := resolveSources(filesFlag)

	text := textFlag
	if composeFlag {
		text = composeText(ctx, cfg, text, firstImage)
	}

	publisher := cli.InitPublisher(ctx, "post", cfg)

	receipt, err := publisher.Publish(ctx, pipe.Request{
		Text:                text,
		Media:               sources,
		Captions:            resolveCaptions(captionsFlag),
		Tags:                tagsFlag,
		ReplyTo:             replyToFlag,
		WhoCanReply:         replyControlFlag,
		AllowedCountryCodes: countriesFlag,
		LinkAttachments:     linksFlag,
		QuotePostID:         quoteFlag,
		PersistQuotedPost:   persistQuoteFlag,
		DisableChaining:     noChainFlag,
		PersistTags:         persistTagsFlag,
	})
	if err != nil {
		cli.HandlePublishError(err)
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("🧵 Published")
	fmt.Println("============================================")
	fmt.Printf("Posts: %d\n", len(receipt.PostIDs))
	for i, id := range receipt.PostIDs {
		fmt.Printf("  %d. %s\n", i+1, id)
	}
	fmt.Println("--------------------------------------------")
	fmt.Println(receipt.Message)
}

// resolveSources maps --file values to media sources. http(s) URLs pass
// through; anything else must be a readable local file. The first local
// image is also returned as bytes so --compose can ground the draft in it.
func resolveSources(files []string) ([]media.Source, []byte) {
	var sources []media.Source
	var firstImage []byte

	for _, f := range files {
		if strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			sources = append(sources, media.FromURL(f))
			continue
		}

		path := cli.ValidateAndResolveFile(f)
		sources = append(sources, media.FromPath(path))

		if firstImage == nil {
			if data, err := os.ReadFile(path); err == nil && filetype.IsImage(data) {
				firstImage = data
			}
		}
	}

	return sources, firstImage
}

// resolveCaptions converts --caption values to the caption list; an empty
// string leaves the media item at that position uncaptioned.
func resolveCaptions(captions []string) []*string {
	out := make([]*string, len(captions))
	for i, c := range captions {
		if c != "" {
			out[i] = &captions[i]
		}
	}
	return out
}

// composeText drafts the post with Gemini from the --text instruction.
// Model-suggested hashtags flow into tag handling unless --tag was given.
func composeText(ctx context.Context, cfg *config.Config, instruction string, image []byte) string {
	if strings.TrimSpace(instruction) == "" {
		log.Fatal().Msg("--compose needs a drafting instruction in --text")
	}

	model := modelFlag
	if model == "" {
		model = cfg.GeminiModel
	}
	gen, err := textgen.New(ctx, cfg.GeminiAPIKey, model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	draft, err := gen.ComposeDraft(ctx, instruction, image)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to draft post text")
	}

	if len(tagsFlag) == 0 {
		tagsFlag = draft.Hashtags
	}

	fmt.Println()
	fmt.Println("📝 Draft:")
	fmt.Println(draft.Text)
	if len(draft.Hashtags) > 0 {
		fmt.Println(strings.Join(draft.Hashtags, " "))
	}
	fmt.Println()

	return draft.Text
}
