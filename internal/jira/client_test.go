package jira

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, cfg Config, handler http.HandlerFunc) (Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL + "/"
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = time.Millisecond
	}
	return NewClient(cfg), &hits
}

func TestSearchIssuesWithHistory(t *testing.T) {
	client, hits := newTestClient(t, Config{Token: "secret"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("expand") != "changelog" || !strings.Contains(q.Get("fields"), "priority") {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("jql") != "project = SUP" || q.Get("startAt") != "50" {
			t.Errorf("unexpected paging %v", q)
		}
		_ = json.NewEncoder(w).Encode(SearchResponse{Total: 51, Issues: []IssueDTO{{Key: "SUP-51"}}})
	})

	ctx := context.Background()
	res, err := client.SearchIssuesWithHistory(ctx, "project = SUP", 50, 50)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Total != 51 || len(res.Issues) != 1 || res.Issues[0].Key != "SUP-51" {
		t.Errorf("unexpected response %+v", res)
	}

	if _, err := client.SearchIssuesWithHistory(ctx, "project = SUP", 50, 50); err != nil {
		t.Fatalf("cached search failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected second search to be served from cache, got %d requests", hits.Load())
	}
}

func TestGetIssue_CookieAuth(t *testing.T) {
	client, _ := newTestClient(t, Config{SessionID: "abc", GCLB: `"lb"`}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/SUP-7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Cookie"); got != `JSESSIONID=abc; GCLB="lb"` {
			t.Errorf("Cookie = %q", got)
		}
		_, _ = w.Write([]byte(`{"key":"SUP-7","fields":{"summary":"Printer on fire","priority":{"name":"High"}}}`))
	})

	issue, err := client.GetIssue(context.Background(), "SUP-7")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if issue.Fields.Summary != "Printer on fire" || issue.Fields.Priority.Name != "High" {
		t.Errorf("unexpected issue %+v", issue.Fields)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header string
		want   error
	}{
		{"Unauthorized", http.StatusUnauthorized, "", ErrAuth},
		{"Forbidden", http.StatusForbidden, "", ErrAuth},
		{"NotFound", http.StatusNotFound, "", ErrNotFound},
		{"RateLimited", http.StatusTooManyRequests, "30", ErrRateLimited},
		{"ServerError", http.StatusBadGateway, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
			})

			_, err := client.GetIssue(context.Background(), "SUP-1")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error %v does not wrap %v", err, tt.want)
			}
			if tt.header != "" && !strings.Contains(err.Error(), tt.header) {
				t.Errorf("error should mention Retry-After, got %v", err)
			}
		})
	}
}

func TestThrottle_RespectsContext(t *testing.T) {
	client, hits := newTestClient(t, Config{RequestDelay: time.Hour}, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"key":"SUP-1"}`))
	})

	if _, err := client.GetIssue(context.Background(), "SUP-1"); err != nil {
		t.Fatalf("first request should not wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.GetIssue(ctx, "SUP-2"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("throttled request reached the server")
	}
}
