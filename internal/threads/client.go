// Package threads provides a client for the Threads Graph API content
// publishing endpoints. It supports creating and publishing text posts,
// single-media posts, and carousels (up to 20 items), plus the account
// read surface (profile, posts, replies, insights, publishing quota).
//
// Publishing is a multi-step process:
//  1. Create media containers (one per item, fetched via public URL)
//  2. For carousels: create a carousel container referencing child containers
//  3. Poll container status until server-side processing completes
//  4. Publish the container, then confirm the status reads PUBLISHED
//
// Root posts go through /{user-id}/threads; replies go through /me/threads.
// The access token rides along as a form or query parameter, which is how
// the Threads API expects it.
package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// defaultGraphHost is the Threads Graph API host.
	defaultGraphHost = "https://graph.threads.net"

	// DefaultAPIVersion is the Graph API version the client targets.
	DefaultAPIVersion = "v1.0"

	// defaultTimeout is the HTTP client timeout for API calls.
	defaultTimeout = 30 * time.Second

	// MaxMediaPerPost is the Threads carousel size limit. Posts with more
	// items must be split across a chain of posts.
	MaxMediaPerPost = 20

	// MaxPostLength is the per-post character limit.
	MaxPostLength = 500
)

// Media types accepted by the container endpoints.
const (
	MediaTypeText     = "TEXT"
	MediaTypeImage    = "IMAGE"
	MediaTypeVideo    = "VIDEO"
	MediaTypeCarousel = "CAROUSEL"
)

// Container status values reported by the API.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusFinished   = "FINISHED"
	StatusError      = "ERROR"
	StatusPublished  = "PUBLISHED"
	StatusExpired    = "EXPIRED"
)

// Reply-control audiences.
const (
	ReplyControlEveryone      = "everyone"
	ReplyControlFollowedBy    = "accounts_you_follow"
	ReplyControlMentionedOnly = "mentioned_only"
)

// Client provides methods for publishing to and reading from the Threads
// Graph API.
type Client struct {
	httpClient  *http.Client
	accessToken string
	userID      string
	baseURL     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL replaces the API base URL (host plus version). Used by tests
// to point the client at a local server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithAPIVersion targets a specific Graph API version.
func WithAPIVersion(version string) Option {
	return func(c *Client) { c.baseURL = defaultGraphHost + "/" + version }
}

// NewClient creates a Threads API client for the given long-lived access
// token and Threads user id.
func NewClient(accessToken, userID string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		accessToken: accessToken,
		userID:      userID,
		baseURL:     defaultGraphHost + "/" + DefaultAPIVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- API error ---

// APIError is a Graph API failure, either an error object in the response
// body or a non-success HTTP status. Raw holds the response body so callers
// can surface exactly what the server said.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       int
	Subcode    int
	TraceID    string
	Raw        json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("threads API error: %s (type: %s, code: %d, http: %d)",
			e.Message, e.Type, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("threads API error: http status %d", e.StatusCode)
}

type apiErrBody struct {
	Error *struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// apiError builds an *APIError from a response body, falling back to the
// HTTP status when the body carries no error object.
func apiError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Raw: body}
	var parsed apiErrBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		apiErr.Message = parsed.Error.Message
		apiErr.Type = parsed.Error.Type
		apiErr.Code = parsed.Error.Code
		apiErr.Subcode = parsed.Error.Subcode
		apiErr.TraceID = parsed.Error.FBTraceID
	}
	return apiErr
}

// --- Containers ---

// ContainerRequest describes a media or post container to create. Zero-value
// fields are left off the wire.
type ContainerRequest struct {
	MediaType      string // TEXT, IMAGE, VIDEO or CAROUSEL
	Text           string
	ImageURL       string // public URL, IMAGE containers
	VideoURL       string // public URL, VIDEO containers
	IsCarouselItem bool
	Children       []string // container ids, CAROUSEL only
	ReplyToID      string   // chain this container as a reply
	ReplyControl   string
	CountryCodes   string // comma-separated allowlisted country codes
	AltText        string
	LinkAttachment string // text-only posts
	QuotePostID    string
}

// containerResponse is the generic {id} response from the write endpoints.
type containerResponse struct {
	ID string `json:"id"`
}

// CreateContainer creates a post or media container and returns its id.
// Replies are routed through /me/threads, everything else through
// /{user-id}/threads.
func (c *Client) CreateContainer(ctx context.Context, req ContainerRequest) (string, error) {
	if req.MediaType == MediaTypeCarousel && len(req.Children) > MaxMediaPerPost {
		return "", fmt.Errorf("carousel supports at most %d items, got %d", MaxMediaPerPost, len(req.Children))
	}

	params := url.Values{}
	params.Set("media_type", req.MediaType)
	if req.Text != "" {
		params.Set("text", req.Text)
	}
	if req.ImageURL != "" {
		params.Set("image_url", req.ImageURL)
	}
	if req.VideoURL != "" {
		params.Set("video_url", req.VideoURL)
	}
	if req.IsCarouselItem {
		params.Set("is_carousel_item", "true")
	}
	if len(req.Children) > 0 {
		params.Set("children", strings.Join(req.Children, ","))
	}
	if req.ReplyToID != "" {
		params.Set("reply_to_id", req.ReplyToID)
	}
	if req.ReplyControl != "" {
		params.Set("reply_control", req.ReplyControl)
	}
	if req.CountryCodes != "" {
		params.Set("allowlisted_country_codes", req.CountryCodes)
	}
	if req.AltText != "" {
		params.Set("alt_text", req.AltText)
	}
	if req.LinkAttachment != "" {
		params.Set("link_attachment", req.LinkAttachment)
	}
	if req.QuotePostID != "" {
		params.Set("quote_post_id", req.QuotePostID)
	}

	endpoint := fmt.Sprintf("/%s/threads", c.userID)
	if req.ReplyToID != "" {
		endpoint = "/me/threads"
	}

	resp, err := c.postForm(ctx, endpoint, params)
	if err != nil {
		return "", fmt.Errorf("create %s container: %w", strings.ToLower(req.MediaType), err)
	}
	log.Debug().Str("containerId", resp.ID).Str("mediaType", req.MediaType).
		Bool("carouselItem", req.IsCarouselItem).Msg("Container created")
	return resp.ID, nil
}

// Publish publishes a finished container. Returns the Threads post id.
func (c *Client) Publish(ctx context.Context, creationID, countryCodes string) (string, error) {
	log.Debug().Str("creationId", creationID).Msg("Publishing container")
	params := url.Values{
		"creation_id": {creationID},
	}
	if countryCodes != "" {
		params.Set("allowlisted_country_codes", countryCodes)
	}

	resp, err := c.postForm(ctx, fmt.Sprintf("/%s/threads_publish", c.userID), params)
	if err != nil {
		return "", fmt.Errorf("publish container %s: %w", creationID, err)
	}
	log.Info().Str("creationId", creationID).Str("postId", resp.ID).Msg("Container published")
	return resp.ID, nil
}

// --- Status polling ---

// ContainerStatus is the processing state of a container, from
// GET /{container-id}?fields=status,error_message.
type ContainerStatus struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// Status fetches the current processing status of a container.
func (c *Client) Status(ctx context.Context, containerID string) (*ContainerStatus, error) {
	body, err := c.get(ctx, "/"+containerID, url.Values{"fields": {"status,error_message"}})
	if err != nil {
		return nil, fmt.Errorf("container status %s: %w", containerID, err)
	}

	var status ContainerStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("parse status response: %w", err)
	}
	status.Raw = body
	return &status, nil
}

// WaitForContainer polls container status until it leaves IN_PROGRESS,
// checking immediately and then once per interval. maxAttempts bounds the
// number of status checks; 0 means poll until the container settles or ctx
// is canceled. The settled status (FINISHED, ERROR or EXPIRED) is returned
// for the caller to act on; an error is returned only for context or
// attempt-exhaustion failures.
func (c *Client) WaitForContainer(ctx context.Context, containerID string, interval time.Duration, maxAttempts int) (*ContainerStatus, error) {
	attempts := 0
	for {
		attempts++
		status, err := c.Status(ctx, containerID)
		switch {
		case err != nil:
			// Transient fetch errors are retried until attempts run out.
			log.Warn().Err(err).Str("containerId", containerID).Msg("Container status poll error, retrying")
		case status.Status == StatusInProgress:
			log.Debug().Str("containerId", containerID).Dur("nextPoll", interval).Msg("Container still processing")
		default:
			log.Debug().Str("containerId", containerID).Str("status", status.Status).Msg("Container settled")
			return status, nil
		}

		if maxAttempts > 0 && attempts >= maxAttempts {
			return nil, fmt.Errorf("container %s: still processing after %d status checks", containerID, attempts)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// --- Internal helpers ---

// postForm sends a form-encoded POST and parses the {id} answer the Threads
// write endpoints share.
func (c *Client) postForm(ctx context.Context, endpoint string, params url.Values) (*containerResponse, error) {
	body, err := c.post(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var resp containerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("unexpected response: no id returned (body: %s)", truncate(string(body), 200))
	}

	return &resp, nil
}

// post sends a POST request with form-encoded parameters, attaching the
// access token, and returns the raw body after error checking.
func (c *Client) post(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	startTime := time.Now()

	params.Set("access_token", c.accessToken)

	// Log form parameter names (not values) at Trace level.
	paramNames := make([]string, 0, len(params))
	for key := range params {
		paramNames = append(paramNames, key)
	}
	log.Trace().Strs("formParams", paramNames).Msg("Form parameters")

	log.Debug().Str("method", http.MethodPost).Str("path", endpoint).Msg("Threads API request")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Dur("duration", duration).Err(err).Msg("Threads API response")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("Threads API response")

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode > 201 {
		apiErr := apiError(httpResp.StatusCode, body)
		log.Error().Str("errorMessage", apiErr.Message).Str("errorType", apiErr.Type).
			Int("errorCode", apiErr.Code).Int("statusCode", httpResp.StatusCode).Msg("Threads API error")
		return nil, apiErr
	}

	return body, nil
}

// get sends a GET request with the access token in the query string and
// returns the raw body after error checking.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, apiError(httpResp.StatusCode, body)
	}
	return body, nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
