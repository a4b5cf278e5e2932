package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sla-mcp/internal/jira"
	"sla-mcp/internal/sla"

	"github.com/rs/zerolog/log"
)

const (
	// BatchSize is the page size requested from Jira.
	BatchSize = 100
	// HardLimit caps the number of issues fetched by an initial hydration.
	HardLimit = 30 * BatchSize
	// StaleAfter evicts a cache whose newest snapshot is older than this.
	StaleAfter = 60 * 24 * time.Hour
)

// Provider keeps a source's snapshot cache in sync with Jira.
type Provider struct {
	client   jira.Client
	store    *Store
	cacheDir string

	// Now is the clock used for the staleness rule.
	Now func() time.Time
}

// NewProvider creates a provider. A nil client makes the provider work
// from the cache only.
func NewProvider(client jira.Client, store *Store, cacheDir string) *Provider {
	return &Provider{
		client:   client,
		store:    store,
		cacheDir: cacheDir,
		Now:      time.Now,
	}
}

// Store returns the underlying snapshot store.
func (p *Provider) Store() *Store {
	return p.store
}

// Load reads the cached snapshots of a source without contacting Jira.
func (p *Provider) Load(sourceID string) error {
	if p.cacheDir == "" || p.store.Count(sourceID) > 0 {
		return nil
	}
	return p.store.Load(p.cacheDir, sourceID)
}

// Online reports whether the provider can reach Jira.
func (p *Provider) Online() bool {
	return p.client != nil
}

// Hydrate loads the cache of a source and fetches every issue updated since
// its newest snapshot. An empty or stale cache triggers a full ingestion of
// the query bounded by HardLimit.
func (p *Provider) Hydrate(ctx context.Context, sourceID string, jql string) error {
	if err := p.Load(sourceID); err != nil {
		log.Warn().Err(err).Str("source", sourceID).Msg("Hydrate: Failed to load cache")
	}

	if p.client == nil {
		log.Debug().Str("source", sourceID).Msg("Hydrate: No Jira client configured, using cache only")
		return nil
	}

	latest := p.store.LatestUpdated(sourceID)

	// Cache Recency (2-month rule)
	if !latest.IsZero() && p.Now().Sub(latest) > StaleAfter {
		log.Info().Str("source", sourceID).Time("latest", latest).Msg("Cache is older than 2 months, evicting and performing full re-ingestion")
		p.store.Clear(sourceID)
		if p.cacheDir != "" {
			_ = DeleteCache(p.cacheDir, sourceID)
		}
		latest = time.Time{}
	}

	isIncremental := !latest.IsZero()
	log.Info().Str("source", sourceID).Bool("incremental", isIncremental).Msg("Starting hydration process")

	jql = stripOrderBy(jql)
	var hydrateJQL string
	if isIncremental {
		// Jira filters at minute precision, so the newest snapshot is fetched again and deduplicated.
		hydrateJQL = fmt.Sprintf("(%s) AND updated >= \"%s\" ORDER BY updated ASC", jql, latest.Format("2006-01-02 15:04"))
	} else {
		hydrateJQL = fmt.Sprintf("(%s) ORDER BY updated DESC", jql)
	}

	totalFetched, changed := 0, 0
	for {
		resp, err := p.client.SearchIssuesWithHistory(ctx, hydrateJQL, totalFetched, BatchSize)
		if err != nil {
			return fmt.Errorf("hydration failed at offset %d: %w", totalFetched, err)
		}
		if len(resp.Issues) == 0 {
			break
		}

		changed += p.store.Upsert(sourceID, resp.Issues)
		totalFetched += len(resp.Issues)

		if len(resp.Issues) < BatchSize {
			break
		}
		if resp.Total > 0 && totalFetched >= resp.Total {
			break
		}
		if !isIncremental && totalFetched >= HardLimit {
			log.Warn().Str("source", sourceID).Int("limit", HardLimit).Msg("Initial hydration stopped at hard limit")
			break
		}
	}

	if p.cacheDir != "" && changed > 0 {
		if err := p.store.Save(p.cacheDir, sourceID); err != nil {
			log.Warn().Err(err).Str("source", sourceID).Msg("Hydrate: Failed to save cache")
		}
	}

	log.Info().Str("source", sourceID).Int("fetched", totalFetched).Int("changed", changed).Msg("Hydration complete")
	return nil
}

// Refresh fetches one issue from Jira into the source, falling back to the
// cached snapshot when no client is configured.
func (p *Provider) Refresh(ctx context.Context, sourceID, key string) (sla.Issue, error) {
	if p.client == nil {
		if dto, ok := p.store.Get(sourceID, key); ok {
			return jira.MapIssue(dto), nil
		}
		return sla.Issue{}, fmt.Errorf("issue %s is not cached and no Jira client is configured", key)
	}

	dto, err := p.client.GetIssue(ctx, key)
	if err != nil {
		return sla.Issue{}, fmt.Errorf("failed to fetch issue %s: %w", key, err)
	}
	p.store.Upsert(sourceID, []jira.IssueDTO{*dto})
	return jira.MapIssue(*dto), nil
}

// Issues returns the domain issues of a source ordered by key.
func (p *Provider) Issues(sourceID string) []sla.Issue {
	return jira.MapIssues(p.store.Issues(sourceID))
}

// stripOrderBy drops a trailing ORDER BY so the query can be wrapped.
func stripOrderBy(jql string) string {
	jqlLower := strings.ToLower(jql)
	if idx := strings.Index(jqlLower, " order by"); idx != -1 {
		return jql[:idx]
	}
	return jql
}
