package pipe

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/threadkit/threadspipe/internal/media"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request describes one publish call: the text and media to send plus the
// options controlling how the resulting post or post chain is shaped.
type Request struct {
	// Text is the post body. It may exceed the per-post character limit;
	// the overflow is split into a chain of replies unless DisableChaining
	// is set.
	Text string

	// Media lists the media inputs in display order. More items than fit
	// in one post are split into groups and spread across the chain.
	Media []media.Source

	// Captions holds per-media alt text, matched to Media by index. Nil
	// entries and missing tail entries mean no caption.
	Captions []*string

	// Tags are hashtags distributed across the chain, one per segment.
	// When set they take precedence over tags extracted from the text.
	Tags []string

	// ReplyTo chains the first segment as a reply to an existing post id.
	ReplyTo string

	// WhoCanReply restricts the reply audience of every segment.
	WhoCanReply string `validate:"omitempty,oneof=everyone accounts_you_follow mentioned_only"`

	// AllowedCountryCodes geo-gates the post. Requires an account that is
	// eligible for geo-gating; eligibility is verified before anything is
	// uploaded.
	AllowedCountryCodes []string `validate:"omitempty,dive,iso3166_1_alpha2"`

	// LinkAttachments attach links to text-only segments. A single link
	// is reused across the whole chain; several links map to segments by
	// index.
	LinkAttachments []string `validate:"omitempty,dive,url"`

	// QuotePostID quotes an existing post on the first segment.
	QuotePostID string

	// PersistQuotedPost repeats the quoted post on every segment of the
	// chain, including media-only ones, instead of only the first.
	PersistQuotedPost bool

	// DisableChaining sends only the first text segment and at most one
	// media group; the rest of the input is dropped.
	DisableChaining bool

	// PersistTags joins all tags and applies the joined string to every
	// tagged segment instead of one tag per segment.
	PersistTags bool
}

// Validate checks the option fields against the values the platform
// accepts. Content-level checks (empty post, media classification) happen
// inside Publish because they depend on publisher configuration.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid publish request: %w", err)
	}
	return nil
}

// countryCodes joins the allowlisted codes the way the container and
// publish endpoints expect them.
func (r *Request) countryCodes() string {
	return strings.Join(r.AllowedCountryCodes, ",")
}

// paddedCaptions aligns the caption slice with the media slice so that
// positional lookups are safe for every classified item.
func (r *Request) paddedCaptions() []*string {
	padded := make([]*string, len(r.Media))
	copy(padded, r.Captions)
	return padded
}
