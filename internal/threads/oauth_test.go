package threads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestAuthorizeURL(t *testing.T) {
	app := NewOAuthApp("app-1", "secret-1")
	raw := app.AuthorizeURL("https://example.com/callback", []string{ScopeBasic, ScopePublish}, "xyz")

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("authorize URL does not parse: %v", err)
	}
	if parsed.Host != "threads.net" || parsed.Path != "/oauth/authorize/" {
		t.Errorf("unexpected endpoint: %s", raw)
	}

	query := parsed.Query()
	if query.Get("client_id") != "app-1" {
		t.Errorf("unexpected client_id: %s", query.Get("client_id"))
	}
	if query.Get("response_type") != "code" {
		t.Errorf("unexpected response_type: %s", query.Get("response_type"))
	}
	if query.Get("scope") != "threads_basic,threads_content_publish" {
		t.Errorf("unexpected scope: %s", query.Get("scope"))
	}
	if query.Get("state") != "xyz" {
		t.Errorf("unexpected state: %s", query.Get("state"))
	}
}

func TestAuthorizeURL_DefaultScopes(t *testing.T) {
	app := NewOAuthApp("app-1", "secret-1")
	raw := app.AuthorizeURL("https://example.com/callback", nil, "")

	parsed, _ := url.Parse(raw)
	scope := parsed.Query().Get("scope")
	for _, want := range AllScopes {
		if !strings.Contains(scope, want) {
			t.Errorf("scope missing %s: %s", want, scope)
		}
	}
	if parsed.Query().Has("state") {
		t.Errorf("empty state must be left off: %s", raw)
	}
}

func TestExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/oauth/access_token" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["client_id"] != "app-1" || payload["client_secret"] != "secret-1" {
			t.Errorf("unexpected credentials: %v", payload)
		}
		if payload["grant_type"] != "authorization_code" {
			t.Errorf("unexpected grant_type: %s", payload["grant_type"])
		}
		if payload["code"] != "auth-code-9" {
			t.Errorf("unexpected code: %s", payload["code"])
		}
		if payload["redirect_uri"] != "https://example.com/callback" {
			t.Errorf("unexpected redirect_uri: %s", payload["redirect_uri"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "short-token",
			"user_id":      17841400000000000,
		})
	}))
	defer server.Close()

	app := NewOAuthApp("app-1", "secret-1", WithOAuthHosts(server.URL, server.URL))
	token, err := app.ExchangeCode(context.Background(), "auth-code-9", "https://example.com/callback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "short-token" {
		t.Errorf("unexpected token: %s", token.AccessToken)
	}
	if token.UserID.String() != "17841400000000000" {
		t.Errorf("unexpected user id: %s", token.UserID)
	}
}

func TestExchangeLongLived(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/access_token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("grant_type") != "th_exchange_token" {
			t.Errorf("unexpected grant_type: %s", query.Get("grant_type"))
		}
		if query.Get("client_secret") != "secret-1" {
			t.Errorf("unexpected client_secret: %s", query.Get("client_secret"))
		}
		if query.Get("access_token") != "short-token" {
			t.Errorf("unexpected access_token: %s", query.Get("access_token"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "long-token",
			"token_type":   "bearer",
			"expires_in":   5183944,
		})
	}))
	defer server.Close()

	app := NewOAuthApp("app-1", "secret-1", WithOAuthHosts(server.URL, server.URL))
	token, err := app.ExchangeLongLived(context.Background(), "short-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "long-token" || token.TokenType != "bearer" {
		t.Errorf("unexpected token: %+v", token)
	}
	if token.ExpiresIn != 5183944 {
		t.Errorf("unexpected expires_in: %d", token.ExpiresIn)
	}
}

func TestRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/refresh_access_token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "th_refresh_token" {
			t.Errorf("unexpected grant_type: %s", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "refreshed-token",
			"token_type":   "bearer",
			"expires_in":   5184000,
		})
	}))
	defer server.Close()

	app := NewOAuthApp("app-1", "secret-1", WithOAuthHosts(server.URL, server.URL))
	token, err := app.Refresh(context.Background(), "long-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "refreshed-token" {
		t.Errorf("unexpected token: %s", token.AccessToken)
	}
}

func TestExchangeCode_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Invalid authorization code", "type": "OAuthException", "code": 100},
		})
	}))
	defer server.Close()

	app := NewOAuthApp("app-1", "secret-1", WithOAuthHosts(server.URL, server.URL))
	_, err := app.ExchangeCode(context.Background(), "bad-code", "https://example.com/callback")
	if err == nil {
		t.Fatal("expected error for rejected code")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != "Invalid authorization code" {
		t.Errorf("unexpected message: %s", apiErr.Message)
	}
}
