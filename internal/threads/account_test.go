package threads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/me") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("fields"); !strings.Contains(got, "threads_biography") {
			t.Errorf("fields missing threads_biography: %s", got)
		}

		json.NewEncoder(w).Encode(map[string]string{
			"id":                          "12345",
			"username":                    "threadkit",
			"name":                        "ThreadKit",
			"threads_profile_picture_url": "https://example.com/avatar.jpg",
			"threads_biography":           "Posting from Go",
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	profile, err := client.Profile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Username != "threadkit" {
		t.Errorf("unexpected username: %s", profile.Username)
	}
	if profile.Biography != "Posting from Go" {
		t.Errorf("unexpected biography: %s", profile.Biography)
	}
}

func TestIsGeoGatingEligible(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":                         "12345",
			"is_eligible_for_geo_gating": true,
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	eligible, err := client.IsGeoGatingEligible(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eligible {
		t.Error("expected eligible account")
	}
}

func TestIsGeoGatingEligible_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "not permitted", "type": "OAuthException", "code": 10},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	eligible, err := client.IsGeoGatingEligible(context.Background())
	if err == nil {
		t.Fatal("expected error from server failure")
	}
	if eligible {
		t.Error("failed check must not report eligible")
	}
}

func TestPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/me/threads") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("since") != "2026-01-01" || query.Get("until") != "2026-02-01" {
			t.Errorf("unexpected window: since=%s until=%s", query.Get("since"), query.Get("until"))
		}
		if query.Get("limit") != "10" {
			t.Errorf("unexpected limit: %s", query.Get("limit"))
		}
		if !strings.Contains(query.Get("fields"), "link_attachment_url") {
			t.Errorf("fields missing link_attachment_url: %s", query.Get("fields"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "p1", "media_type": "TEXT_POST", "text": "first", "username": "threadkit"},
				{"id": "p2", "media_type": "IMAGE", "media_url": "https://example.com/1.jpg"},
			},
			"paging": map[string]any{"cursors": map[string]string{"before": "b", "after": "a"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	list, err := client.Posts(context.Background(), PostsOptions{
		Since: "2026-01-01",
		Until: "2026-02-01",
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Data) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(list.Data))
	}
	if list.Data[0].Text != "first" {
		t.Errorf("unexpected text: %s", list.Data[0].Text)
	}
	if list.Paging.Cursors.After != "a" {
		t.Errorf("unexpected cursor: %s", list.Paging.Cursors.After)
	}
}

func TestReplies_Reverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/post-1/replies") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("reverse") != "true" {
			t.Errorf("expected reverse=true")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "r1", "text": "nice", "is_reply": true, "hide_status": "NOT_HUSHED",
					"root_post": map[string]string{"id": "post-1"}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	list, err := client.Replies(context.Background(), "post-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(list.Data))
	}
	reply := list.Data[0]
	if !reply.IsReply || reply.HideStatus != "NOT_HUSHED" {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if reply.RootPost == nil || reply.RootPost.ID != "post-1" {
		t.Errorf("unexpected root post: %+v", reply.RootPost)
	}
}

func TestSetReplyVisibility(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/reply-9/manage_reply") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		r.ParseForm()
		if r.Form.Get("hide") != "true" {
			t.Errorf("expected hide=true, got %s", r.Form.Get("hide"))
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.SetReplyVisibility(context.Background(), "reply-9", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRepost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/post-5/repost") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(containerResponse{ID: "repost-001"})
	}))
	defer server.Close()

	client := newTestClient(server)
	id, err := client.Repost(context.Background(), "post-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "repost-001" {
		t.Errorf("expected repost-001, got %s", id)
	}
}

func TestPostInsights_DefaultMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("metric"); got != "views,likes,replies,reposts,quotes,shares" {
			t.Errorf("unexpected metric list: %s", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"name": "views", "period": "lifetime",
					"values": []map[string]any{{"value": 1200}}, "id": "p1/insights/views"},
				{"name": "likes", "period": "lifetime",
					"values": []map[string]any{{"value": 42}}, "id": "p1/insights/likes"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	metrics, err := client.PostInsights(context.Background(), "p1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(metrics))
	}
	if metrics[0].Name != "views" || metrics[0].Values[0].Value.String() != "1200" {
		t.Errorf("unexpected metric: %+v", metrics[0])
	}
}

func TestUserInsights_Breakdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/12345/threads_insights") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("metric") != "follower_demographics" {
			t.Errorf("unexpected metric: %s", query.Get("metric"))
		}
		if query.Get("breakdown") != "country" {
			t.Errorf("unexpected breakdown: %s", query.Get("breakdown"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"name": "follower_demographics", "period": "lifetime",
					"total_value": map[string]any{"breakdowns": []any{}}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	metrics, err := client.UserInsights(context.Background(), UserInsightsOptions{
		Metrics:   []string{"follower_demographics"},
		Breakdown: "country",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 1 || len(metrics[0].TotalValue) == 0 {
		t.Errorf("expected total_value payload, got %+v", metrics)
	}
}

func TestPublishingLimit_Posts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/12345/threads_publishing_limit") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("fields"); got != "quota_usage,config" {
			t.Errorf("unexpected fields: %s", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"quota_usage": 15, "config": map[string]any{"quota_total": 250, "quota_duration": 86400}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	quota, err := client.PublishingLimit(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quota == nil {
		t.Fatal("expected quota data")
	}
	if quota.Usage != 15 || quota.Total != 250 {
		t.Errorf("unexpected quota: usage=%d total=%d", quota.Usage, quota.Total)
	}
	if quota.Window != 24*time.Hour {
		t.Errorf("unexpected window: %s", quota.Window)
	}
	if quota.Remaining() != 235 {
		t.Errorf("unexpected remaining: %d", quota.Remaining())
	}
}

func TestPublishingLimit_Replies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fields"); got != "reply_quota_usage,reply_config" {
			t.Errorf("unexpected fields: %s", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"reply_quota_usage": 990, "reply_config": map[string]any{"quota_total": 1000, "quota_duration": 86400}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	quota, err := client.PublishingLimit(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quota == nil {
		t.Fatal("expected quota data")
	}
	if quota.Usage != 990 || quota.Total != 1000 {
		t.Errorf("unexpected quota: usage=%d total=%d", quota.Usage, quota.Total)
	}
}

func TestPublishingLimit_NoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := newTestClient(server)
	quota, err := client.PublishingLimit(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quota != nil {
		t.Errorf("expected nil quota when server reports no data, got %+v", quota)
	}
}

func TestPostIntent(t *testing.T) {
	got := PostIntent("Hello & welcome", "https://example.com/a?b=c")
	if !strings.HasPrefix(got, "https://www.threads.net/intent/post?") {
		t.Errorf("unexpected intent prefix: %s", got)
	}
	if !strings.Contains(got, "text=Hello+%26+welcome") {
		t.Errorf("text not escaped: %s", got)
	}
	if !strings.Contains(got, "url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc") {
		t.Errorf("url not escaped: %s", got)
	}
}

func TestFollowIntent(t *testing.T) {
	got := FollowIntent("thread kit")
	if got != "https://www.threads.net/intent/follow?username=thread+kit" {
		t.Errorf("unexpected intent: %s", got)
	}
}
