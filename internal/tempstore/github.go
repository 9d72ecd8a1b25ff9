package tempstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	githubAPIBase    = "https://api.github.com"
	githubAPIVersion = "2022-11-28"
	githubNameLength = 10
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GitHubStore keeps temporary media as files in a GitHub repository via the
// contents API. The raw download URL of each committed file serves as the
// public media URL. The repository must be public for the platform to fetch
// from it.
type GitHubStore struct {
	httpClient *http.Client
	token      string
	owner      string
	repo       string
	apiBase    string
}

// GitHubOption configures a GitHubStore.
type GitHubOption func(*GitHubStore)

// WithGitHubHTTPClient replaces the default HTTP client.
func WithGitHubHTTPClient(hc *http.Client) GitHubOption {
	return func(g *GitHubStore) { g.httpClient = hc }
}

// WithGitHubAPIBase replaces the API base URL. Used by tests.
func WithGitHubAPIBase(base string) GitHubOption {
	return func(g *GitHubStore) { g.apiBase = strings.TrimRight(base, "/") }
}

// NewGitHubStore builds a GitHub-backed store. token must be a fine-grained
// token with contents read/write on the repository.
func NewGitHubStore(token, owner, repo string, opts ...GitHubOption) (*GitHubStore, error) {
	if token == "" || owner == "" || repo == "" {
		return nil, ErrMissingCredentials
	}
	g := &GitHubStore{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      token,
		owner:      owner,
		repo:       repo,
		apiBase:    githubAPIBase,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type githubContent struct {
	Content struct {
		DownloadURL string `json:"download_url"`
		SHA         string `json:"sha"`
	} `json:"content"`
}

func (g *GitHubStore) Upload(ctx context.Context, data []byte, contentType string) (*Handle, error) {
	name := randomName(githubNameLength) + "." + extensionForMIME(contentType)

	payload, err := json.Marshal(map[string]string{
		"message": fmt.Sprintf("threadspipe: temporary media upload at %s", time.Now().Format(time.RFC1123)),
		"content": base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("encode upload request: %w", err)
	}

	log.Debug().
		Str("repo", g.owner+"/"+g.repo).
		Str("path", name).
		Int("sizeBytes", len(data)).
		Msg("Uploading temporary media to GitHub")

	body, err := g.do(ctx, http.MethodPut, g.contentsURL(name), payload)
	if err != nil {
		return nil, fmt.Errorf("upload media to GitHub: %w", err)
	}

	var resp githubContent
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse GitHub upload response: %w", err)
	}
	if resp.Content.DownloadURL == "" || resp.Content.SHA == "" {
		return nil, fmt.Errorf("GitHub upload response missing download_url or sha")
	}

	return &Handle{PublicURL: resp.Content.DownloadURL, Key: name, Ref: resp.Content.SHA}, nil
}

func (g *GitHubStore) Delete(ctx context.Context, h *Handle) error {
	payload, err := json.Marshal(map[string]string{
		"message": fmt.Sprintf("threadspipe: temporary media removed at %s", time.Now().Format(time.RFC1123)),
		"sha":     h.Ref,
	})
	if err != nil {
		return fmt.Errorf("encode delete request: %w", err)
	}

	if _, err := g.do(ctx, http.MethodDelete, g.contentsURL(h.Key), payload); err != nil {
		return fmt.Errorf("delete %s from GitHub: %w", h.Key, err)
	}
	return nil
}

func (g *GitHubStore) contentsURL(name string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiBase, g.owner, g.repo, name)
}

func (g *GitHubStore) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode > 201 {
		return nil, fmt.Errorf("GitHub API returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func randomName(length int) string {
	name := make([]byte, length)
	for i := range name {
		name[i] = nameAlphabet[rand.IntN(len(nameAlphabet))]
	}
	return string(name)
}
