package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Field lists for the read endpoints. The API returns only what is asked for.
const (
	postFields = "id,is_quote_post,media_product_type,media_type,media_url," +
		"permalink,owner,username,text,timestamp,shortcode,thumbnail_url," +
		"alt_text,children,link_attachment_url"
	replyFields = "id,text,timestamp,media_product_type,media_type,media_url," +
		"shortcode,thumbnail_url,children,has_replies,root_post,replied_to," +
		"is_reply,hide_status"
	userReplyFields = replyFields + ",is_reply_owned_by_me,reply_audience"
)

// Post insight metrics accepted by /{post-id}/insights.
var PostMetrics = []string{"views", "likes", "replies", "reposts", "quotes", "shares"}

// User insight metrics accepted by /{user-id}/threads_insights.
var UserMetrics = []string{"views", "likes", "replies", "reposts", "quotes", "followers_count", "follower_demographics"}

// Demographic breakdowns accepted by the follower_demographics metric.
var InsightBreakdowns = []string{"country", "city", "age", "gender"}

// Profile is the authenticated account's public profile.
type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	ProfilePictureURL string `json:"threads_profile_picture_url"`
	Biography         string `json:"threads_biography"`
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	body, err := c.get(ctx, "/me", url.Values{
		"fields": {"id,username,name,threads_profile_picture_url,threads_biography"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &profile, nil
}

// IsGeoGatingEligible reports whether the account may restrict posts to
// allowlisted countries. Only public professional accounts qualify. Callers
// should treat an error as not eligible.
func (c *Client) IsGeoGatingEligible(ctx context.Context) (bool, error) {
	body, err := c.get(ctx, "/me", url.Values{
		"fields": {"id,is_eligible_for_geo_gating"},
	})
	if err != nil {
		return false, fmt.Errorf("fetch geo-gating eligibility: %w", err)
	}

	var resp struct {
		Eligible bool `json:"is_eligible_for_geo_gating"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("parse geo-gating eligibility: %w", err)
	}
	return resp.Eligible, nil
}

// GeoGatedPost is a post id together with the country codes it is
// restricted to.
type GeoGatedPost struct {
	ID           string   `json:"id"`
	CountryCodes []string `json:"allowlisted_country_codes"`
}

// AllowlistedCountryCodes lists recent posts with the country allowlist each
// was published under. limit caps the page size; 0 leaves it to the server.
func (c *Client) AllowlistedCountryCodes(ctx context.Context, limit int) ([]GeoGatedPost, error) {
	query := url.Values{"fields": {"id,allowlisted_country_codes"}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, "/me/threads", query)
	if err != nil {
		return nil, fmt.Errorf("fetch allowlisted country codes: %w", err)
	}

	var resp struct {
		Data []GeoGatedPost `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse allowlisted country codes: %w", err)
	}
	return resp.Data, nil
}

// --- Posts ---

// Post is a published Threads post.
type Post struct {
	ID               string `json:"id"`
	IsQuotePost      bool   `json:"is_quote_post"`
	MediaProductType string `json:"media_product_type"`
	MediaType        string `json:"media_type"`
	MediaURL         string `json:"media_url,omitempty"`
	Permalink        string `json:"permalink,omitempty"`
	Owner            struct {
		ID string `json:"id"`
	} `json:"owner"`
	Username          string          `json:"username"`
	Text              string          `json:"text,omitempty"`
	Timestamp         string          `json:"timestamp"`
	Shortcode         string          `json:"shortcode"`
	ThumbnailURL      string          `json:"thumbnail_url,omitempty"`
	AltText           string          `json:"alt_text,omitempty"`
	Children          json.RawMessage `json:"children,omitempty"`
	LinkAttachmentURL string          `json:"link_attachment_url,omitempty"`
}

// Paging holds the cursors the API hands back with list responses.
type Paging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
}

// PostList is a page of posts.
type PostList struct {
	Data   []Post `json:"data"`
	Paging Paging `json:"paging"`
}

// PostsOptions filters the Posts listing. Since and Until take unix
// timestamps or YYYY-MM-DD dates, per the Graph API conventions.
type PostsOptions struct {
	Since string
	Until string
	Limit int
}

// Posts lists the authenticated user's posts, newest first.
func (c *Client) Posts(ctx context.Context, opts PostsOptions) (*PostList, error) {
	query := url.Values{"fields": {postFields}}
	if opts.Since != "" {
		query.Set("since", opts.Since)
	}
	if opts.Until != "" {
		query.Set("until", opts.Until)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	body, err := c.get(ctx, "/me/threads", query)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	var list PostList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse posts: %w", err)
	}
	return &list, nil
}

// Post fetches a single post by id.
func (c *Client) Post(ctx context.Context, postID string) (*Post, error) {
	body, err := c.get(ctx, "/"+postID, url.Values{"fields": {postFields}})
	if err != nil {
		return nil, fmt.Errorf("fetch post %s: %w", postID, err)
	}

	var post Post
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("parse post: %w", err)
	}
	return &post, nil
}

// --- Replies ---

// Reply is a reply post. RootPost and RepliedTo identify the conversation it
// belongs to; HideStatus reports moderation state (NOT_HUSHED, HIDDEN, ...).
type Reply struct {
	ID               string          `json:"id"`
	Text             string          `json:"text,omitempty"`
	Timestamp        string          `json:"timestamp"`
	MediaProductType string          `json:"media_product_type"`
	MediaType        string          `json:"media_type"`
	MediaURL         string          `json:"media_url,omitempty"`
	Shortcode        string          `json:"shortcode"`
	ThumbnailURL     string          `json:"thumbnail_url,omitempty"`
	Children         json.RawMessage `json:"children,omitempty"`
	HasReplies       bool            `json:"has_replies"`
	RootPost         *struct {
		ID string `json:"id"`
	} `json:"root_post,omitempty"`
	RepliedTo *struct {
		ID string `json:"id"`
	} `json:"replied_to,omitempty"`
	IsReply          bool   `json:"is_reply"`
	HideStatus       string `json:"hide_status,omitempty"`
	IsReplyOwnedByMe bool   `json:"is_reply_owned_by_me,omitempty"`
	ReplyAudience    string `json:"reply_audience,omitempty"`
}

// ReplyList is a page of replies.
type ReplyList struct {
	Data   []Reply `json:"data"`
	Paging Paging  `json:"paging"`
}

// Replies fetches top-level replies to a post. reverse orders newest first.
func (c *Client) Replies(ctx context.Context, postID string, reverse bool) (*ReplyList, error) {
	return c.replyListing(ctx, "/"+postID+"/replies", replyFields, reverse)
}

// Conversation fetches the full reply tree of a post, flattened. reverse
// orders newest first.
func (c *Client) Conversation(ctx context.Context, postID string, reverse bool) (*ReplyList, error) {
	return c.replyListing(ctx, "/"+postID+"/conversation", replyFields, reverse)
}

// UserReplies fetches replies authored by the authenticated user.
func (c *Client) UserReplies(ctx context.Context, reverse bool) (*ReplyList, error) {
	return c.replyListing(ctx, "/me/replies", userReplyFields, reverse)
}

func (c *Client) replyListing(ctx context.Context, endpoint, fields string, reverse bool) (*ReplyList, error) {
	body, err := c.get(ctx, endpoint, url.Values{
		"fields":  {fields},
		"reverse": {strconv.FormatBool(reverse)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch replies: %w", err)
	}

	var list ReplyList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse replies: %w", err)
	}
	return &list, nil
}

// SetReplyVisibility hides or unhides a reply to one of the authenticated
// user's posts. Nested replies under it are hidden along with it.
func (c *Client) SetReplyVisibility(ctx context.Context, replyID string, hide bool) error {
	body, err := c.post(ctx, "/"+replyID+"/manage_reply",
		url.Values{"hide": {strconv.FormatBool(hide)}})
	if err != nil {
		return fmt.Errorf("manage reply %s: %w", replyID, err)
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parse manage reply response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("manage reply %s: server did not confirm", replyID)
	}
	return nil
}

// Repost reposts an existing post and returns the repost id.
func (c *Client) Repost(ctx context.Context, postID string) (string, error) {
	resp, err := c.postForm(ctx, "/"+postID+"/repost", url.Values{})
	if err != nil {
		return "", fmt.Errorf("repost %s: %w", postID, err)
	}
	return resp.ID, nil
}

// --- Insights ---

// InsightValue is one data point of a metric series.
type InsightValue struct {
	Value   json.Number `json:"value"`
	EndTime string      `json:"end_time,omitempty"`
}

// InsightMetric is one metric returned by the insights endpoints. Metrics
// with a breakdown carry their shape in TotalValue.
type InsightMetric struct {
	Name        string          `json:"name"`
	Period      string          `json:"period"`
	Values      []InsightValue  `json:"values,omitempty"`
	TotalValue  json.RawMessage `json:"total_value,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ID          string          `json:"id"`
}

type insightList struct {
	Data []InsightMetric `json:"data"`
}

// PostInsights fetches engagement metrics for a post. An empty metrics slice
// requests all of PostMetrics.
func (c *Client) PostInsights(ctx context.Context, postID string, metrics []string) ([]InsightMetric, error) {
	if len(metrics) == 0 {
		metrics = PostMetrics
	}
	body, err := c.get(ctx, "/"+postID+"/insights", url.Values{
		"metric": {strings.Join(metrics, ",")},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch post insights: %w", err)
	}

	var list insightList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse post insights: %w", err)
	}
	return list.Data, nil
}

// UserInsightsOptions filters the account-level insights query.
type UserInsightsOptions struct {
	Metrics   []string
	Since     string
	Until     string
	Breakdown string // follower_demographics only: country, city, age or gender
}

// UserInsights fetches account-level metrics for the authenticated user.
func (c *Client) UserInsights(ctx context.Context, opts UserInsightsOptions) ([]InsightMetric, error) {
	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = UserMetrics
	}
	query := url.Values{"metric": {strings.Join(metrics, ",")}}
	if opts.Since != "" {
		query.Set("since", opts.Since)
	}
	if opts.Until != "" {
		query.Set("until", opts.Until)
	}
	if opts.Breakdown != "" {
		query.Set("breakdown", opts.Breakdown)
	}

	body, err := c.get(ctx, fmt.Sprintf("/%s/threads_insights", c.userID), query)
	if err != nil {
		return nil, fmt.Errorf("fetch user insights: %w", err)
	}

	var list insightList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse user insights: %w", err)
	}
	return list.Data, nil
}

// --- Publishing quota ---

// Quota is the account's publishing allowance inside a rolling window.
type Quota struct {
	Usage  int64
	Total  int64
	Window time.Duration
	Raw    json.RawMessage
}

// Remaining reports how many more posts fit in the current window.
func (q *Quota) Remaining() int64 {
	if q.Total < q.Usage {
		return 0
	}
	return q.Total - q.Usage
}

// PublishingLimit fetches the current publishing quota, for root posts or
// for replies. A nil Quota with a nil error means the server reported no
// quota data, which callers should treat as no limit in effect.
func (c *Client) PublishingLimit(ctx context.Context, forReplies bool) (*Quota, error) {
	fields := "quota_usage,config"
	if forReplies {
		fields = "reply_quota_usage,reply_config"
	}

	body, err := c.get(ctx, fmt.Sprintf("/%s/threads_publishing_limit", c.userID),
		url.Values{"fields": {fields}})
	if err != nil {
		return nil, fmt.Errorf("fetch publishing limit: %w", err)
	}

	var resp struct {
		Data []struct {
			QuotaUsage      *int64       `json:"quota_usage"`
			Config          *quotaConfig `json:"config"`
			ReplyQuotaUsage *int64       `json:"reply_quota_usage"`
			ReplyConfig     *quotaConfig `json:"reply_config"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse publishing limit: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	entry := resp.Data[0]
	usage, cfg := entry.QuotaUsage, entry.Config
	if forReplies {
		usage, cfg = entry.ReplyQuotaUsage, entry.ReplyConfig
	}
	if usage == nil || cfg == nil {
		return nil, nil
	}

	return &Quota{
		Usage:  *usage,
		Total:  cfg.QuotaTotal,
		Window: time.Duration(cfg.QuotaDuration) * time.Second,
		Raw:    body,
	}, nil
}

type quotaConfig struct {
	QuotaTotal    int64 `json:"quota_total"`
	QuotaDuration int64 `json:"quota_duration"` // seconds
}

// --- Web intents ---

// PostIntent returns a threads.net URL that opens the composer prefilled
// with text and an optional link. No API credentials involved.
func PostIntent(text, link string) string {
	query := url.Values{}
	if text != "" {
		query.Set("text", text)
	}
	if link != "" {
		query.Set("url", link)
	}
	intent := "https://www.threads.net/intent/post"
	if encoded := query.Encode(); encoded != "" {
		intent += "?" + encoded
	}
	return intent
}

// FollowIntent returns a threads.net URL that prompts the visitor to follow
// the given account.
func FollowIntent(username string) string {
	return "https://www.threads.net/intent/follow?" + url.Values{"username": {username}}.Encode()
}
