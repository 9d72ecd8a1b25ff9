package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForCode prompts the user interactively for the authorization code
// from the OAuth redirect. A full redirect URL may be pasted; the code
// query parameter is extracted from it.
func PromptForCode() string {
	fmt.Print("Authorization code (or full redirect URL): ")

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read input")
		return ""
	}

	return ExtractCode(strings.TrimSpace(input))
}

// ExtractCode pulls the authorization code out of a pasted redirect URL.
// Plain codes pass through unchanged. The `#_` fragment Meta appends to
// redirect URIs is stripped.
func ExtractCode(input string) string {
	if i := strings.Index(input, "code="); i >= 0 {
		input = input[i+len("code="):]
		if j := strings.IndexAny(input, "&#"); j >= 0 {
			input = input[:j]
		}
	}
	return strings.TrimSuffix(input, "#_")
}
