// Package envelope defines the tagged results that the publishing pipeline
// hands back to callers. Every failure is classified by a Kind so callers can
// branch on what went wrong without parsing message strings, and carries the
// raw server body when one was available.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindEmptyContent: neither text nor media was provided.
	KindEmptyContent Kind = "empty_content"
	// KindNotEligibleForGeoGating: country codes were supplied but the
	// account is not approved for geo-gated content.
	KindNotEligibleForGeoGating Kind = "not_eligible_for_geo_gating"
	// KindUnresolvableMediaType: a media item's type could not be
	// determined (unknown extension and the probe request failed).
	KindUnresolvableMediaType Kind = "unresolvable_media_type"
	// KindInvalidMediaEncoding: an item declared as base64 failed to decode.
	KindInvalidMediaEncoding Kind = "invalid_media_encoding"
	// KindUnsupportedMediaKind: the item resolved to something other than
	// an image or a video.
	KindUnsupportedMediaKind Kind = "unsupported_media_kind"
	// KindRateLimitExceeded: the account's publishing quota is exhausted.
	KindRateLimitExceeded Kind = "rate_limit_exceeded"
	// KindMediaProcessingFailed: a media container reached ERROR while
	// being processed server-side.
	KindMediaProcessingFailed Kind = "media_processing_failed"
	// KindPostContainerCreationFailed: the post container request was
	// rejected.
	KindPostContainerCreationFailed Kind = "post_container_creation_failed"
	// KindPostPublishRejected: the publish call itself failed.
	KindPostPublishRejected Kind = "post_publish_rejected"
	// KindPostVerificationFailed: publish succeeded but the container never
	// reported PUBLISHED.
	KindPostVerificationFailed Kind = "post_verification_failed"
	// KindTempStorageUploadFailed: raw bytes could not be staged on the
	// temporary object store.
	KindTempStorageUploadFailed Kind = "temp_storage_upload_failed"
	// KindTempStorageMissingCredentials: the temporary object store is not
	// configured.
	KindTempStorageMissingCredentials Kind = "temp_storage_missing_credentials"
)

// Error is a classified pipeline failure.
//
// Item is the zero-based index of the media item or chain segment the
// failure is tied to, or -1 when it applies to the whole call. PostIDs
// lists segments that were already live on the platform when a chain
// aborted, so callers know where the chain stopped.
type Error struct {
	Kind    Kind
	Step    string
	Item    int
	Message string
	Body    json.RawMessage
	PostIDs []string
	Err     error
}

// Errorf builds an Error with a formatted message. Item defaults to -1;
// use the With* methods to attach context.
func Errorf(kind Kind, step, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Step:    step,
		Item:    -1,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithItem records the failing media or segment index.
func (e *Error) WithItem(i int) *Error {
	e.Item = i
	return e
}

// WithBody attaches the raw server response body.
func (e *Error) WithBody(body []byte) *Error {
	if len(body) > 0 {
		e.Body = json.RawMessage(body)
	}
	return e
}

// WithPostIDs records the posts already published before the failure.
func (e *Error) WithPostIDs(ids []string) *Error {
	e.PostIDs = ids
	return e
}

// WithCause attaches the underlying error for errors.Is/As chains.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from an error chain, or "" if the chain holds
// no classified error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Receipt describes a fully published post chain.
type Receipt struct {
	Message string          `json:"message"`
	PostIDs []string        `json:"post_ids"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}
