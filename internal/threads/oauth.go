package threads

import (
	"bytes"
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

// OAuth permission scopes.
const (
	ScopeBasic         = "threads_basic"
	ScopePublish       = "threads_content_publish"
	ScopeReadReplies   = "threads_read_replies"
	ScopeManageReplies = "threads_manage_replies"
	ScopeInsights      = "threads_manage_insights"
)

// AllScopes requests every permission the API offers.
var AllScopes = []string{ScopeBasic, ScopePublish, ScopeReadReplies, ScopeManageReplies, ScopeInsights}

const (
	defaultAuthHost  = "https://threads.net"
	defaultTokenHost = "https://graph.threads.net"
)

// OAuthApp drives the three-legged Threads OAuth flow: send the user to
// AuthorizeURL, trade the returned code for a short-lived token with
// ExchangeCode, then upgrade it with ExchangeLongLived. Long-lived tokens
// last 60 days and are extended with Refresh.
type OAuthApp struct {
	appID      string
	appSecret  string
	httpClient *http.Client
	authHost   string
	tokenHost  string
}

// OAuthOption configures an OAuthApp.
type OAuthOption func(*OAuthApp)

// WithOAuthHTTPClient replaces the default HTTP client.
func WithOAuthHTTPClient(hc *http.Client) OAuthOption {
	return func(a *OAuthApp) { a.httpClient = hc }
}

// WithOAuthHosts replaces the authorization and token hosts. Used by tests.
func WithOAuthHosts(authHost, tokenHost string) OAuthOption {
	return func(a *OAuthApp) {
		a.authHost = strings.TrimRight(authHost, "/")
		a.tokenHost = strings.TrimRight(tokenHost, "/")
	}
}

// NewOAuthApp creates an OAuth helper for a Threads app.
func NewOAuthApp(appID, appSecret string, opts ...OAuthOption) *OAuthApp {
	a := &OAuthApp{
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: defaultTimeout},
		authHost:   defaultAuthHost,
		tokenHost:  defaultTokenHost,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthorizeURL builds the URL the user must visit to grant the app the given
// scopes. state is echoed back on the redirect for CSRF checking; empty
// leaves it off.
func (a *OAuthApp) AuthorizeURL(redirectURI string, scopes []string, state string) string {
	if len(scopes) == 0 {
		scopes = AllScopes
	}
	query := url.Values{
		"client_id":     {a.appID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, ",")},
	}
	if state != "" {
		query.Set("state", state)
	}
	return a.authHost + "/oauth/authorize/?" + query.Encode()
}

// ShortLivedToken is the result of the authorization-code exchange. The
// token expires after an hour.
type ShortLivedToken struct {
	AccessToken string      `json:"access_token"`
	UserID      json.Number `json:"user_id"`
}

// LongLivedToken is a 60-day token. ExpiresIn counts down in seconds from
// the moment the server issued it.
type LongLivedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExpiresAt converts ExpiresIn to an absolute time, measured from now.
func (t *LongLivedToken) ExpiresAt() time.Time {
	return time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
}

// ExchangeCode trades an authorization code for a short-lived access token.
// redirectURI must match the one used in AuthorizeURL.
func (a *OAuthApp) ExchangeCode(ctx context.Context, code, redirectURI string) (*ShortLivedToken, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     a.appID,
		"client_secret": a.appSecret,
		"code":          code,
		"grant_type":    "authorization_code",
		"redirect_uri":  redirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.tokenHost+"/oauth/access_token", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := a.do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	var token ShortLivedToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response carried no access_token (body: %s)", truncate(string(body), 200))
	}
	log.Info().Str("userId", token.UserID.String()).Msg("Authorization code exchanged")
	return &token, nil
}

// ExchangeLongLived upgrades a short-lived token to a 60-day token.
func (a *OAuthApp) ExchangeLongLived(ctx context.Context, shortLivedToken string) (*LongLivedToken, error) {
	token, err := a.tokenGet(ctx, "/access_token", url.Values{
		"grant_type":    {"th_exchange_token"},
		"client_secret": {a.appSecret},
		"access_token":  {shortLivedToken},
	})
	if err != nil {
		return nil, fmt.Errorf("exchange long-lived token: %w", err)
	}
	log.Info().Int64("expiresInSeconds", token.ExpiresIn).Msg("Long-lived token issued")
	return token, nil
}

// Refresh extends an unexpired long-lived token for another 60 days. Tokens
// must be at least 24 hours old before they can be refreshed.
func (a *OAuthApp) Refresh(ctx context.Context, longLivedToken string) (*LongLivedToken, error) {
	token, err := a.tokenGet(ctx, "/refresh_access_token", url.Values{
		"grant_type":   {"th_refresh_token"},
		"access_token": {longLivedToken},
	})
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	log.Info().Int64("expiresInSeconds", token.ExpiresIn).Msg("Long-lived token refreshed")
	return token, nil
}

func (a *OAuthApp) tokenGet(ctx context.Context, endpoint string, query url.Values) (*LongLivedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.tokenHost+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var token LongLivedToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response carried no access_token (body: %s)", truncate(string(body), 200))
	}
	return &token, nil
}

func (a *OAuthApp) do(req *http.Request) ([]byte, error) {
	httpResp, err := a.httpClient.Do(req)
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
