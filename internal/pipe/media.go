package pipe

import (
	"context"
	"errors"

	"github.com/threadkit/threadspipe/internal/envelope"
	"github.com/threadkit/threadspipe/internal/media"
	"github.com/threadkit/threadspipe/internal/tempstore"
	"github.com/threadkit/threadspipe/internal/threads"
)

// Pipeline step names carried in error envelopes.
const (
	stepValidate      = "validate"
	stepGeoGating     = "geo gating check"
	stepRateLimit     = "rate limit check"
	stepItemContainer = "media item container"
	stepPostContainer = "post container"
	stepPublish       = "publish"
	stepVerify        = "publish verification"
)

// segment is one chain link ready to send: its text, its media group and
// the post-level fields that ride along with it.
type segment struct {
	text         string
	media        []media.Classified
	captions     []*string
	mediaBase    int // index of media[0] within the whole request
	replyTo      string
	replyControl string
	codes        string
	link         string
	quote        string
}

// captionAt resolves the alt text for the group-local media index i.
func (s *segment) captionAt(i int) string {
	if i < len(s.captions) && s.captions[i] != nil {
		return *s.captions[i]
	}
	return ""
}

// handles collects the temp-storage handles consumed by this segment.
func (s *segment) handles() []*tempstore.Handle {
	var handles []*tempstore.Handle
	for _, item := range s.media {
		if item.Temp != nil {
			handles = append(handles, item.Temp)
		}
	}
	return handles
}

// stageContainer creates the container for one segment and returns its id.
// Text-only and single-media segments get a direct container; larger
// groups get one container per item, each polled to FINISHED, and a
// CAROUSEL parent referencing them.
func (p *Publisher) stageContainer(ctx context.Context, seg *segment) (string, error) {
	req := threads.ContainerRequest{
		Text:         seg.text,
		ReplyToID:    seg.replyTo,
		ReplyControl: seg.replyControl,
		CountryCodes: seg.codes,
		QuotePostID:  seg.quote,
	}

	switch len(seg.media) {
	case 0:
		req.MediaType = threads.MediaTypeText
		req.LinkAttachment = seg.link
	case 1:
		item := seg.media[0]
		req.MediaType = string(item.Kind)
		if item.Kind == media.KindVideo {
			req.VideoURL = item.URL
		} else {
			req.ImageURL = item.URL
		}
		req.AltText = seg.captionAt(0)
	default:
		children, err := p.stageCarouselItems(ctx, seg)
		if err != nil {
			return "", err
		}
		req.MediaType = threads.MediaTypeCarousel
		req.Children = children
	}

	id, err := p.client.CreateContainer(ctx, req)
	if err != nil {
		return "", envelope.Errorf(envelope.KindPostContainerCreationFailed, stepPostContainer,
			"could not create the post container").WithBody(apiBody(err)).WithCause(err)
	}
	return id, nil
}

// stageCarouselItems creates and settles one item container per media in
// the group. Every item must reach FINISHED before the parent carousel may
// reference it.
func (p *Publisher) stageCarouselItems(ctx context.Context, seg *segment) ([]string, error) {
	children := make([]string, 0, len(seg.media))
	for i, item := range seg.media {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index := seg.mediaBase + i

		req := threads.ContainerRequest{
			MediaType:      string(item.Kind),
			IsCarouselItem: true,
			CountryCodes:   seg.codes,
			AltText:        seg.captionAt(i),
		}
		if item.Kind == media.KindVideo {
			req.VideoURL = item.URL
		} else {
			req.ImageURL = item.URL
		}

		id, err := p.client.CreateContainer(ctx, req)
		if err != nil {
			return nil, envelope.Errorf(envelope.KindPostContainerCreationFailed, stepItemContainer,
				"could not create the item container for the media at index %d", index).
				WithItem(index).WithBody(apiBody(err)).WithCause(err)
		}

		status, err := p.client.WaitForContainer(ctx, id, p.mediaPollInterval, p.maxPollAttempts)
		if err != nil {
			return nil, envelope.Errorf(envelope.KindMediaProcessingFailed, stepItemContainer,
				"media at index %d never finished processing", index).
				WithItem(index).WithCause(err)
		}
		if status.Status != threads.StatusFinished {
			return nil, envelope.Errorf(envelope.KindMediaProcessingFailed, stepItemContainer,
				"media at index %d could not be processed", index).
				WithItem(index).WithBody(status.Raw)
		}

		children = append(children, id)
	}
	return children, nil
}

// apiBody extracts the raw server response from an API error chain, or nil
// when the failure never reached the server.
func apiBody(err error) []byte {
	var apiErr *threads.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Raw
	}
	return nil
}
