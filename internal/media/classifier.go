package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/rs/zerolog/log"

	"github.com/threadkit/threadspipe/internal/envelope"
	"github.com/threadkit/threadspipe/internal/tempstore"
)

// extPattern captures a trailing file extension on a URL.
var extPattern = regexp.MustCompile(`\.([a-zA-Z0-9]+)$`)

// Classified is a media item resolved to a platform-fetchable URL. Temp is
// set when the bytes were staged on temporary storage and must be deleted
// after the post goes live (or on failure).
type Classified struct {
	Kind Kind
	URL  string
	Temp *tempstore.Handle
}

// Classifier resolves Sources to Classified media. The store may be nil
// when every input is URL-sourced; local bytes then fail with a
// missing-credentials error.
type Classifier struct {
	store      tempstore.Store
	httpClient *http.Client
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithProbeClient replaces the HTTP client used for content-type probes.
func WithProbeClient(hc *http.Client) ClassifierOption {
	return func(c *Classifier) { c.httpClient = hc }
}

// NewClassifier creates a Classifier backed by the given temporary store.
func NewClassifier(store tempstore.Store, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify resolves every source in order. Any single failure aborts the
// batch: temp uploads made for earlier items are swept and only the error
// comes back, tagged with the failing item's index. Partial results are
// never returned.
func (c *Classifier) Classify(ctx context.Context, sources []Source) ([]Classified, error) {
	classified := make([]Classified, 0, len(sources))
	var uploaded []*tempstore.Handle

	fail := func(err error) ([]Classified, error) {
		// The sweep must run even when the failure is the context itself.
		tempstore.Cleanup(context.WithoutCancel(ctx), c.store, uploaded)
		return nil, err
	}

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		item, err := c.classifyOne(ctx, src, i)
		if err != nil {
			return fail(err)
		}
		if item.Temp != nil {
			uploaded = append(uploaded, item.Temp)
		}
		classified = append(classified, item)
	}

	log.Debug().Int("count", len(classified)).Int("staged", len(uploaded)).Msg("Media batch classified")
	return classified, nil
}

func (c *Classifier) classifyOne(ctx context.Context, src Source, index int) (Classified, error) {
	switch src.kind {
	case sourceURL:
		return c.resolveURL(ctx, src.ref, index)
	case sourceBase64:
		data, err := base64.StdEncoding.DecodeString(src.ref)
		if err != nil {
			return Classified{}, envelope.Errorf(envelope.KindInvalidMediaEncoding, "classify",
				"media at index %d is not valid base64", index).WithItem(index).WithCause(err)
		}
		return c.stage(ctx, data, index)
	case sourcePath:
		data, err := os.ReadFile(src.ref)
		if err != nil {
			return Classified{}, envelope.Errorf(envelope.KindUnresolvableMediaType, "classify",
				"media at index %d could not be read", index).WithItem(index).WithCause(err)
		}
		return c.stage(ctx, data, index)
	default:
		return c.stage(ctx, src.data, index)
	}
}

// resolveURL determines the media kind of a remote URL: first from its
// extension, then by probing the server for a content type.
func (c *Classifier) resolveURL(ctx context.Context, rawURL string, index int) (Classified, error) {
	mime := ""
	if m := extPattern.FindStringSubmatch(rawURL); m != nil {
		if t := filetype.GetType(m[1]); t != types.Unknown {
			mime = t.MIME.Value
		}
	}

	if mime == "" {
		probed, err := c.probeContentType(ctx, rawURL)
		if err != nil {
			return Classified{}, envelope.Errorf(envelope.KindUnresolvableMediaType, "classify",
				"media at index %d could not be reached to determine its type", index).
				WithItem(index).WithCause(err)
		}
		mime = probed
	}

	if mime == "" {
		return Classified{}, envelope.Errorf(envelope.KindUnresolvableMediaType, "classify",
			"media type of the item at index %d could not be determined", index).WithItem(index)
	}

	kind, ok := kindForMIME(mime)
	if !ok {
		return Classified{}, envelope.Errorf(envelope.KindUnsupportedMediaKind, "classify",
			"media at index %d must be an image or a video, got %s", index, mime).WithItem(index)
	}
	return Classified{Kind: kind, URL: rawURL}, nil
}

func (c *Classifier) probeContentType(ctx context.Context, rawURL string) (string, error) {
	probeURL := rawURL
	if parsed, err := url.Parse(rawURL); err != nil || parsed.Scheme == "" {
		probeURL = "http://" + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return "", fmt.Errorf("build probe request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode > http.StatusOK {
		return "", fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), nil
}

// stage sniffs local bytes and uploads them to temporary storage.
func (c *Classifier) stage(ctx context.Context, data []byte, index int) (Classified, error) {
	if c.store == nil {
		return Classified{}, envelope.Errorf(envelope.KindTempStorageMissingCredentials, "classify",
			"media at index %d needs temporary hosting but no storage backend is configured", index).
			WithItem(index).WithCause(tempstore.ErrMissingCredentials)
	}

	var kind Kind
	switch {
	case filetype.IsImage(data):
		kind = KindImage
	case filetype.IsVideo(data):
		kind = KindVideo
	default:
		return Classified{}, envelope.Errorf(envelope.KindUnsupportedMediaKind, "classify",
			"media at index %d must be an image or a video, got %s", index, sniffedMIME(data)).WithItem(index)
	}

	handle, err := c.store.Upload(ctx, data, sniffedMIME(data))
	if err != nil {
		errKind := envelope.KindTempStorageUploadFailed
		if errors.Is(err, tempstore.ErrMissingCredentials) {
			errKind = envelope.KindTempStorageMissingCredentials
		}
		return Classified{}, envelope.Errorf(errKind, "classify",
			"media at index %d could not be staged on temporary storage", index).
			WithItem(index).WithCause(err)
	}

	log.Debug().Int("index", index).Str("kind", string(kind)).Str("url", handle.PublicURL).
		Msg("Local media staged")
	return Classified{Kind: kind, URL: handle.PublicURL, Temp: handle}, nil
}

func sniffedMIME(data []byte) string {
	t, err := filetype.Match(data)
	if err != nil || t == types.Unknown {
		return "unknown"
	}
	return t.MIME.Value
}

func kindForMIME(mime string) (Kind, bool) {
	switch strings.ToUpper(strings.SplitN(mime, "/", 2)[0]) {
	case "IMAGE":
		return KindImage, true
	case "VIDEO":
		return KindVideo, true
	}
	return "", false
}
