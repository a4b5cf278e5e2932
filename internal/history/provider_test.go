package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sla-mcp/internal/jira"
)

type fakeClient struct {
	pages   [][]jira.IssueDTO
	issue   *jira.IssueDTO
	err     error
	queries []string
}

func (f *fakeClient) SearchIssuesWithHistory(_ context.Context, jql string, startAt, _ int) (*jira.SearchResponse, error) {
	f.queries = append(f.queries, fmt.Sprintf("%s@%d", jql, startAt))
	if f.err != nil {
		return nil, f.err
	}
	page := startAt / BatchSize
	if page >= len(f.pages) {
		return &jira.SearchResponse{}, nil
	}
	return &jira.SearchResponse{StartAt: startAt, Issues: f.pages[page]}, nil
}

func (f *fakeClient) GetIssue(_ context.Context, key string) (*jira.IssueDTO, error) {
	if f.issue == nil {
		return nil, jira.ErrNotFound
	}
	return f.issue, nil
}

func fullPage(start int, updated time.Time) []jira.IssueDTO {
	page := make([]jira.IssueDTO, BatchSize)
	for i := range page {
		page[i] = snapshot(fmt.Sprintf("SUP-%d", start+i), "Open", updated)
	}
	return page
}

func TestHydrate_InitialThenIncremental(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	updated := now.Add(-24 * time.Hour)
	client := &fakeClient{pages: [][]jira.IssueDTO{
		fullPage(1, updated),
		{snapshot("SUP-500", "Done", updated.Add(time.Hour))},
	}}

	cacheDir := t.TempDir()
	p := NewProvider(client, NewStore(), cacheDir)
	p.Now = func() time.Time { return now }

	if err := p.Hydrate(context.Background(), "sup", "project = SUP"); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if got := p.Store().Count("sup"); got != BatchSize+1 {
		t.Errorf("count = %d, want %d", got, BatchSize+1)
	}
	if len(client.queries) != 2 || !strings.Contains(client.queries[0], "ORDER BY updated DESC@0") || !strings.HasSuffix(client.queries[1], fmt.Sprintf("@%d", BatchSize)) {
		t.Errorf("unexpected paging %v", client.queries)
	}

	// A fresh provider resumes from the saved cache.
	client2 := &fakeClient{pages: [][]jira.IssueDTO{{snapshot("SUP-500", "Closed", updated.Add(2*time.Hour))}}}
	p2 := NewProvider(client2, NewStore(), cacheDir)
	p2.Now = func() time.Time { return now }
	if err := p2.Hydrate(context.Background(), "sup", "project = SUP"); err != nil {
		t.Fatalf("incremental Hydrate failed: %v", err)
	}
	if want := `(project = SUP) AND updated >= "2025-03-09 13:00" ORDER BY updated ASC@0`; client2.queries[0] != want {
		t.Errorf("incremental query = %q, want %q", client2.queries[0], want)
	}
	if dto, _ := p2.Store().Get("sup", "SUP-500"); dto.Fields.Status.Name != "Closed" {
		t.Errorf("snapshot not refreshed: %q", dto.Fields.Status.Name)
	}

	issues := p2.Issues("sup")
	if len(issues) != BatchSize+1 || issues[0].Key != "SUP-1" || issues[len(issues)-1].Key != "SUP-500" {
		t.Errorf("unexpected issue order: first=%s last=%s", issues[0].Key, issues[len(issues)-1].Key)
	}
}

func TestHydrate_EvictsStaleCache(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore()
	store.Upsert("sup", []jira.IssueDTO{snapshot("SUP-1", "Open", now.Add(-90*24*time.Hour))})

	client := &fakeClient{pages: [][]jira.IssueDTO{{snapshot("SUP-2", "Open", now.Add(-time.Hour))}}}
	p := NewProvider(client, store, "")
	p.Now = func() time.Time { return now }

	if err := p.Hydrate(context.Background(), "sup", "project = SUP"); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if _, ok := store.Get("sup", "SUP-1"); ok {
		t.Error("stale snapshot should be evicted")
	}
	if strings.Contains(client.queries[0], "updated >=") {
		t.Errorf("stale cache should trigger a full ingestion, got %q", client.queries[0])
	}
}

func TestHydrate_PropagatesClientErrors(t *testing.T) {
	p := NewProvider(&fakeClient{err: jira.ErrAuth}, NewStore(), "")
	err := p.Hydrate(context.Background(), "sup", "project = SUP")
	if !errors.Is(err, jira.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	updated := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	dto := snapshot("SUP-3", "In Progress", updated)

	p := NewProvider(&fakeClient{issue: &dto}, NewStore(), "")
	issue, err := p.Refresh(context.Background(), "sup", "SUP-3")
	if err != nil || issue.Status != "In Progress" {
		t.Fatalf("Refresh = %+v, %v", issue, err)
	}
	if p.Store().Count("sup") != 1 {
		t.Error("refreshed issue should be stored")
	}

	offline := NewProvider(nil, p.Store(), "")
	if _, err := offline.Refresh(context.Background(), "sup", "SUP-3"); err != nil {
		t.Errorf("cached issue should be served offline: %v", err)
	}
	if _, err := offline.Refresh(context.Background(), "sup", "SUP-4"); err == nil {
		t.Error("expected error for uncached issue without client")
	}
}

func TestStripOrderBy(t *testing.T) {
	tests := map[string]string{
		"project = SUP ORDER BY created DESC": "project = SUP",
		"project = SUP order by key":          "project = SUP",
		"project = SUP":                       "project = SUP",
	}
	for in, want := range tests {
		if got := stripOrderBy(in); got != want {
			t.Errorf("stripOrderBy(%q) = %q, want %q", in, got, want)
		}
	}
}
