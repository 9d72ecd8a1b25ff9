// Package tempstore hosts locally supplied media at a temporary public URL
// so the Threads API can fetch it during container creation, and removes it
// once the post is live. Two backends are provided: an S3 bucket with
// presigned GET URLs, and a GitHub repository using the contents API.
package tempstore

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrMissingCredentials reports that no temporary-storage backend is
// configured. Callers hit this only when media actually needs hosting;
// URL-sourced media never touches a Store.
var ErrMissingCredentials = errors.New("temporary storage credentials not configured")

// Handle points at one uploaded object. The Store that minted it is the one
// that can delete it.
type Handle struct {
	PublicURL string // URL the platform fetches the media from
	Key       string // object key or repository file path
	Ref       string // backend delete reference (GitHub blob sha)
}

// Store is a temporary home for media bytes.
type Store interface {
	// Upload stores data and returns a handle with a publicly fetchable URL.
	Upload(ctx context.Context, data []byte, contentType string) (*Handle, error)
	// Delete removes a previously uploaded object.
	Delete(ctx context.Context, h *Handle) error
}

// Cleanup deletes every handle, best-effort. Failures are logged and do not
// stop the sweep; a post that is already live must not be failed over a
// leftover temp file.
func Cleanup(ctx context.Context, store Store, handles []*Handle) {
	if store == nil || len(handles) == 0 {
		return
	}
	for _, h := range handles {
		if h == nil {
			continue
		}
		if err := store.Delete(ctx, h); err != nil {
			log.Warn().Err(err).Str("key", h.Key).Msg("Temporary media not deleted")
			continue
		}
		log.Debug().Str("key", h.Key).Msg("Temporary media deleted")
	}
}

// extensionForMIME derives a file extension from a content type, the same
// way the platform-side names do: the subtype, lowercased.
func extensionForMIME(contentType string) string {
	parts := strings.Split(contentType, "/")
	return strings.ToLower(parts[len(parts)-1])
}
