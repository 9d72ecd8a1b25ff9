// Package pipe drives the full publishing flow against the Threads Graph
// API: it splits long text into a reply chain, classifies and stages media,
// respects the account's publishing quota and walks every chain segment
// through the container-create, poll, publish and verify cycle. Temporary
// media uploads are deleted as soon as the segment that consumed them is
// live, or swept in one pass when the chain aborts.
package pipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/threadkit/threadspipe/internal/envelope"
	"github.com/threadkit/threadspipe/internal/media"
	"github.com/threadkit/threadspipe/internal/ratelimit"
	"github.com/threadkit/threadspipe/internal/splitter"
	"github.com/threadkit/threadspipe/internal/tempstore"
	"github.com/threadkit/threadspipe/internal/threads"
)

const (
	// DefaultMediaPollInterval is the wait between status checks while a
	// media item container is processing.
	DefaultMediaPollInterval = 35 * time.Second

	// DefaultPostPollInterval is the wait between status checks while a
	// post container is processing.
	DefaultPostPollInterval = 35 * time.Second
)

// Publisher sends posts and reply chains to Threads.
type Publisher struct {
	client     *threads.Client
	store      tempstore.Store
	classifier *media.Classifier
	limiter    *ratelimit.Limiter
	splitter   *splitter.Splitter

	splitLimit      int
	handleTags      bool
	autoTags        bool
	checkRateLimit  bool
	waitOnRateLimit bool

	mediaPollInterval time.Duration
	postPollInterval  time.Duration
	maxPollAttempts   int
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithSplitLimit overrides the per-post character limit used when chaining.
func WithSplitLimit(limit int) PublisherOption {
	return func(p *Publisher) { p.splitLimit = limit }
}

// WithHashtagHandling toggles extraction of trailing hashtags from the
// post text and their distribution across the chain. On by default.
func WithHashtagHandling(enabled bool) PublisherOption {
	return func(p *Publisher) { p.handleTags = enabled }
}

// WithAutoHashtags makes tag distribution skip segments that already
// contain an inline hashtag of their own. Implies hashtag handling.
func WithAutoHashtags(enabled bool) PublisherOption {
	return func(p *Publisher) { p.autoTags = enabled }
}

// WithRateLimitCheck toggles the quota check before each segment. On by
// default.
func WithRateLimitCheck(enabled bool) PublisherOption {
	return func(p *Publisher) { p.checkRateLimit = enabled }
}

// WithWaitOnRateLimit makes the publisher sleep out the quota window and
// continue instead of failing when the quota is exhausted.
func WithWaitOnRateLimit(enabled bool) PublisherOption {
	return func(p *Publisher) { p.waitOnRateLimit = enabled }
}

// WithMediaPollInterval overrides the media container polling interval.
func WithMediaPollInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.mediaPollInterval = d }
}

// WithPostPollInterval overrides the post container polling interval.
func WithPostPollInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.postPollInterval = d }
}

// WithMaxPollAttempts bounds the number of status checks per container;
// 0 polls until the container settles or the context is canceled.
func WithMaxPollAttempts(n int) PublisherOption {
	return func(p *Publisher) { p.maxPollAttempts = n }
}

// WithClassifier replaces the media classifier, e.g. to inject a probe
// client in tests.
func WithClassifier(c *media.Classifier) PublisherOption {
	return func(p *Publisher) { p.classifier = c }
}

// New creates a Publisher for the given API client. The store holds
// locally supplied media while the platform fetches it; it may be nil when
// every input is URL-sourced.
func New(client *threads.Client, store tempstore.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:            client,
		store:             store,
		splitLimit:        splitter.DefaultLimit,
		handleTags:        true,
		checkRateLimit:    true,
		mediaPollInterval: DefaultMediaPollInterval,
		postPollInterval:  DefaultPostPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.classifier == nil {
		p.classifier = media.NewClassifier(store)
	}
	if p.checkRateLimit || p.waitOnRateLimit {
		p.limiter = ratelimit.New(client, p.waitOnRateLimit)
	}
	p.splitter = splitter.New(p.splitLimit, p.autoTags)
	return p
}

// Publish sends the request as a post, or as a chain of posts when the
// text or media exceed the per-post limits. The first segment replies to
// req.ReplyTo when set; every later segment replies to the one before it.
// On failure the returned error identifies the failing step and, when the
// chain was partially published, the ids already live.
func (p *Publisher) Publish(ctx context.Context, req Request) (*envelope.Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Media) == 0 {
		return nil, envelope.Errorf(envelope.KindEmptyContent, stepValidate,
			"either text or at least one media item must be provided")
	}

	// Geo-gated content needs an eligible account; verified before any
	// upload happens.
	codes := req.countryCodes()
	if codes != "" {
		eligible, err := p.client.IsGeoGatingEligible(ctx)
		if err != nil {
			return nil, fmt.Errorf("geo-gating eligibility check: %w", err)
		}
		if !eligible {
			return nil, envelope.Errorf(envelope.KindNotEligibleForGeoGating, stepGeoGating,
				"this content is geo-gated but the account is not eligible for geo-gating")
		}
	}

	text, tags := p.resolveTags(text, req)

	segments := p.splitter.Split(text, tags)
	if req.DisableChaining {
		segments = segments[:1]
	}

	captions := req.paddedCaptions()
	sources := req.Media
	if req.DisableChaining && len(sources) > threads.MaxMediaPerPost {
		sources = sources[:threads.MaxMediaPerPost]
	}

	classified, err := p.classifier.Classify(ctx, sources)
	if err != nil {
		// The classifier already swept its own uploads.
		return nil, err
	}
	groups := mediaGroups(classified)

	log.Info().Int("segments", len(segments)).Int("mediaGroups", len(groups)).
		Bool("reply", req.ReplyTo != "").Msg("Publishing post chain")

	var (
		postIDs []string
		lastRaw json.RawMessage
		replyTo = req.ReplyTo
		quote   = req.QuotePostID
	)

	// fail sweeps every temp handle no published segment has consumed yet
	// and tags the error with the ids that are already live.
	fail := func(group int, err error) (*envelope.Receipt, error) {
		p.sweepFrom(ctx, groups, group)
		var envErr *envelope.Error
		if errors.As(err, &envErr) {
			envErr.WithPostIDs(postIDs)
		}
		return nil, err
	}

	for i, segText := range segments {
		if err := ctx.Err(); err != nil {
			return fail(i, err)
		}

		seg := segment{
			text:         segText,
			replyTo:      replyTo,
			replyControl: req.WhoCanReply,
			codes:        codes,
			quote:        quote,
		}
		if i < len(groups) {
			base := i * threads.MaxMediaPerPost
			seg.media = groups[i]
			seg.captions = captions[base : base+len(groups[i])]
			seg.mediaBase = base
		} else {
			seg.link = linkFor(req.LinkAttachments, i)
		}

		id, raw, err := p.sendSegment(ctx, &seg)
		if err != nil {
			return fail(i, err)
		}

		postIDs = append(postIDs, id)
		lastRaw = raw
		replyTo = id
		if !req.PersistQuotedPost {
			quote = ""
		}
		p.sweepSegment(ctx, &seg)
	}

	// Media groups beyond the text segments continue the chain as
	// media-only replies.
	for g := len(segments); g < len(groups); g++ {
		if err := ctx.Err(); err != nil {
			return fail(g, err)
		}

		base := g * threads.MaxMediaPerPost
		seg := segment{
			media:        groups[g],
			captions:     captions[base : base+len(groups[g])],
			mediaBase:    base,
			replyTo:      replyTo,
			replyControl: req.WhoCanReply,
			codes:        codes,
			quote:        quote,
		}

		id, raw, err := p.sendSegment(ctx, &seg)
		if err != nil {
			return fail(g, err)
		}

		postIDs = append(postIDs, id)
		lastRaw = raw
		replyTo = id
		p.sweepSegment(ctx, &seg)
	}

	log.Info().Strs("postIds", postIDs).Msg("Post piped to Threads successfully")
	return &envelope.Receipt{
		Message: "Post piped to Threads successfully",
		PostIDs: postIDs,
		Raw:     lastRaw,
	}, nil
}

// resolveTags extracts trailing hashtags from the text when tag handling
// is on. Explicitly provided tags win over extracted ones, but extracted
// tags are stripped from the text either way.
func (p *Publisher) resolveTags(text string, req Request) (string, []string) {
	tags := req.Tags
	if !p.handleTags && !p.autoTags {
		return text, tags
	}

	remainder, extracted := splitter.ExtractTrailingTags(text)
	if len(tags) == 0 {
		tags = extracted
	}
	if len(extracted) > 0 {
		text = remainder
	}
	if req.PersistTags {
		tags = splitter.PersistTags(tags)
	}
	return text, tags
}

// sendSegment drives one chain link end to end: quota gate, container
// staging, processing poll, publish and the final PUBLISHED verification.
// Returns the published post id and the raw verification body.
func (p *Publisher) sendSegment(ctx context.Context, seg *segment) (string, json.RawMessage, error) {
	if p.limiter != nil {
		decision := p.limiter.Check(ctx, seg.replyTo != "")
		switch decision.Action {
		case ratelimit.ActionWait:
			log.Info().Dur("wait", decision.Wait).Msg("Publishing quota exhausted, waiting out the window")
			select {
			case <-ctx.Done():
				return "", nil, ctx.Err()
			case <-time.After(decision.Wait):
			}
		case ratelimit.ActionReject:
			err := envelope.Errorf(envelope.KindRateLimitExceeded, stepRateLimit,
				"publishing quota exhausted")
			if decision.Quota != nil {
				err = err.WithBody(decision.Quota.Raw)
			}
			return "", nil, err
		}
	}

	containerID, err := p.stageContainer(ctx, seg)
	if err != nil {
		return "", nil, err
	}

	status, err := p.client.WaitForContainer(ctx, containerID, p.postPollInterval, p.maxPollAttempts)
	if err != nil {
		return "", nil, envelope.Errorf(envelope.KindMediaProcessingFailed, stepPostContainer,
			"post container %s never finished processing", containerID).WithCause(err)
	}
	if status.Status != threads.StatusFinished {
		return "", nil, envelope.Errorf(envelope.KindMediaProcessingFailed, stepPostContainer,
			"uploaded media could not be published").WithBody(status.Raw)
	}

	postID, err := p.client.Publish(ctx, containerID, seg.codes)
	if err != nil {
		return "", nil, envelope.Errorf(envelope.KindPostPublishRejected, stepPublish,
			"could not publish post").WithBody(apiBody(err)).WithCause(err)
	}

	// Publish acceptance alone is not proof the post went live.
	verify, err := p.client.Status(ctx, containerID)
	if err != nil {
		return "", nil, envelope.Errorf(envelope.KindPostVerificationFailed, stepVerify,
			"could not confirm the post went live").WithCause(err)
	}
	if verify.Status != threads.StatusPublished {
		return "", nil, envelope.Errorf(envelope.KindPostVerificationFailed, stepVerify,
			"post not sent: %s", verify.ErrorMessage).WithBody(verify.Raw)
	}

	return postID, verify.Raw, nil
}

// sweepSegment deletes the temp handles a freshly published segment
// consumed. Cleanup runs outside the request context so it still completes
// when the caller is about to cancel.
func (p *Publisher) sweepSegment(ctx context.Context, seg *segment) {
	tempstore.Cleanup(context.WithoutCancel(ctx), p.store, seg.handles())
}

// sweepFrom deletes the temp handles of every media group no published
// segment has consumed, starting at group index g. Earlier groups were
// already swept when their segments went live.
func (p *Publisher) sweepFrom(ctx context.Context, groups [][]media.Classified, g int) {
	var handles []*tempstore.Handle
	for ; g < len(groups); g++ {
		for _, item := range groups[g] {
			if item.Temp != nil {
				handles = append(handles, item.Temp)
			}
		}
	}
	tempstore.Cleanup(context.WithoutCancel(ctx), p.store, handles)
}

// mediaGroups windows the classified media into per-post groups.
func mediaGroups(items []media.Classified) [][]media.Classified {
	var groups [][]media.Classified
	for lo := 0; lo < len(items); lo += threads.MaxMediaPerPost {
		hi := min(lo+threads.MaxMediaPerPost, len(items))
		groups = append(groups, items[lo:hi])
	}
	return groups
}

// linkFor maps the supplied link attachments to a text-only segment: a
// single link is shared by every segment, several attach positionally.
func linkFor(links []string, i int) string {
	switch {
	case len(links) == 1:
		return links[0]
	case i < len(links):
		return links[i]
	}
	return ""
}
