package tempstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGitHubStore_MissingCredentials(t *testing.T) {
	_, err := NewGitHubStore("", "owner", "repo")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	_, err = NewGitHubStore("token", "owner", "")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestGitHubStore_Upload(t *testing.T) {
	data := []byte("fake jpeg bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/repos/octo/media-drop/contents/") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if !strings.HasSuffix(r.URL.Path, ".jpeg") {
			t.Errorf("expected .jpeg name, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gh-token" {
			t.Errorf("unexpected authorization: %s", got)
		}
		if got := r.Header.Get("X-GitHub-Api-Version"); got != "2022-11-28" {
			t.Errorf("unexpected API version: %s", got)
		}

		var payload struct {
			Message string `json:"message"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(payload.Content)
		if err != nil || string(decoded) != string(data) {
			t.Errorf("content is not the base64 of the upload: %v", err)
		}
		if payload.Message == "" {
			t.Error("expected a commit message")
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{
				"download_url": "https://raw.example.com/octo/media-drop/main/abc.jpeg",
				"sha":          "blob-sha-1",
			},
		})
	}))
	defer server.Close()

	store, err := NewGitHubStore("gh-token", "octo", "media-drop", WithGitHubAPIBase(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handle, err := store.Upload(context.Background(), data, "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.PublicURL != "https://raw.example.com/octo/media-drop/main/abc.jpeg" {
		t.Errorf("unexpected public URL: %s", handle.PublicURL)
	}
	if handle.Ref != "blob-sha-1" {
		t.Errorf("unexpected ref: %s", handle.Ref)
	}
	if len(handle.Key) != githubNameLength+len(".jpeg") {
		t.Errorf("unexpected key: %s", handle.Key)
	}
}

func TestGitHubStore_UploadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid request"})
	}))
	defer server.Close()

	store, _ := NewGitHubStore("gh-token", "octo", "media-drop", WithGitHubAPIBase(server.URL))
	_, err := store.Upload(context.Background(), []byte("x"), "image/png")
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Errorf("expected status error, got: %v", err)
	}
}

func TestGitHubStore_Delete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/contents/abcdefghij.png") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var payload struct {
			SHA string `json:"sha"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.SHA != "blob-sha-2" {
			t.Errorf("unexpected sha: %s", payload.SHA)
		}

		json.NewEncoder(w).Encode(map[string]any{"commit": map[string]string{"sha": "commit-1"}})
	}))
	defer server.Close()

	store, _ := NewGitHubStore("gh-token", "octo", "media-drop", WithGitHubAPIBase(server.URL))
	err := store.Delete(context.Background(), &Handle{Key: "abcdefghij.png", Ref: "blob-sha-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCleanup_SweepsPastFailures(t *testing.T) {
	var deleted []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/contents/bad.png") {
			w.WriteHeader(http.StatusConflict)
			return
		}
		deleted = append(deleted, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	store, _ := NewGitHubStore("gh-token", "octo", "media-drop", WithGitHubAPIBase(server.URL))
	Cleanup(context.Background(), store, []*Handle{
		{Key: "first.png", Ref: "sha1"},
		{Key: "bad.png", Ref: "sha2"},
		{Key: "last.png", Ref: "sha3"},
	})

	if len(deleted) != 2 {
		t.Errorf("expected the sweep to continue past the failure, deleted: %v", deleted)
	}
}

func TestExtensionForMIME(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "jpeg"},
		{"video/mp4", "mp4"},
		{"image/PNG", "png"},
	}
	for _, tt := range tests {
		if got := extensionForMIME(tt.contentType); got != tt.want {
			t.Errorf("extensionForMIME(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
