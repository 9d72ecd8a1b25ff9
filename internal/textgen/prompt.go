package textgen

import (
	_ "embed"
	"strings"
)

// composeSystemPrompt instructs the model on tone and format for post drafts.
//
//go:embed prompts/compose-system.txt
var composeSystemPrompt string

// draftSystemPrompt is the structured variant: same voice rules, but the
// reply must be a JSON object with the text and hashtags separated.
//
//go:embed prompts/draft-system.txt
var draftSystemPrompt string

// buildComposePrompt assembles the user prompt from the draft request and
// optional photo context extracted from the attached image's metadata.
func buildComposePrompt(request, photoContext string) string {
	var sb strings.Builder

	sb.WriteString("## Post Draft Request\n\n")
	sb.WriteString(request)
	sb.WriteString("\n")

	if photoContext != "" {
		sb.WriteString("\n### Photo Context\n\n")
		sb.WriteString(photoContext)
		sb.WriteString("\n")
	}

	return sb.String()
}
