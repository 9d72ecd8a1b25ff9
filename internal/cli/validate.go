package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/threadkit/threadspipe/internal/envelope"
)

// ValidateAndResolveFile checks that the path exists and is a regular
// file, then returns the absolute path. Exits fatally on failure.
func ValidateAndResolveFile(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatal().Str("path", path).Msg("File not found")
		}
		log.Fatal().Err(err).Str("path", path).Msg("Failed to access file")
	}
	if info.IsDir() {
		log.Fatal().Str("path", path).Msg("Path is a directory, expected a media file")
	}

	absPath, err := filepath.Abs(path)
	if err == nil {
		path = absPath
	}

	return path
}

// HandlePublishError renders a failed publish run and exits. Tagged
// pipeline errors get guidance; anything else is reported as-is.
func HandlePublishError(err error) {
	var pubErr *envelope.Error
	if !errors.As(err, &pubErr) {
		log.Fatal().Err(err).Msg("Publish failed")
	}

	evt := log.Error().Str("kind", string(pubErr.Kind)).Str("step", pubErr.Step)
	if pubErr.Item >= 0 {
		evt = evt.Int("item", pubErr.Item)
	}
	if len(pubErr.PostIDs) > 0 {
		evt = evt.Strs("publishedPostIds", pubErr.PostIDs)
	}
	if len(pubErr.Body) > 0 {
		evt = evt.RawJSON("response", pubErr.Body)
	}
	evt.Msg(pubErr.Message)

	switch pubErr.Kind {
	case envelope.KindEmptyContent:
		log.Fatal().Msg("Nothing to post. Provide text or at least one media item")
	case envelope.KindRateLimitExceeded:
		log.Fatal().Msg("Publishing quota exhausted. Wait for the window to reset or set THREADSPIPE_WAIT_ON_RATE_LIMIT=true")
	case envelope.KindTempStorageMissingCredentials:
		log.Fatal().Msg("Local media needs temporary hosting. Configure THREADSPIPE_S3_BUCKET or THREADSPIPE_GH_TOKEN")
	case envelope.KindNotEligibleForGeoGating:
		log.Fatal().Msg("This account is not eligible for geo-gated posts. Remove the country restriction")
	default:
		os.Exit(1)
	}
}
