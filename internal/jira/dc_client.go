package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// searchFields are the issue fields the SLA engine consumes.
const searchFields = "summary,status,issuetype,created,priority,resolution,resolutiondate,updated"

type dcClient struct {
	cfg        Config
	httpClient *http.Client
	responses  *responseCache

	throttleMu  sync.Mutex
	lastRequest time.Time
}

// NewDataCenterClient creates a client for a Jira Data Center instance.
func NewDataCenterClient(cfg Config) Client {
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = 10 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &dcClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		responses:  newResponseCache(cfg.CacheTTL),
	}
}

// throttle spaces consecutive requests by RequestDelay. It returns early
// with the context error if ctx ends while waiting.
func (c *dcClient) throttle(ctx context.Context) error {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()

	if !c.lastRequest.IsZero() {
		if wait := c.cfg.RequestDelay - time.Since(c.lastRequest); wait > 0 {
			log.Debug().Dur("wait", wait).Msg("Throttling Jira request")
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *dcClient) authenticateRequest(req *http.Request) {
	// 1. Prioritize Personal Access Token (PAT)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
		return
	}

	// 2. Fallback to session cookies
	cookies := []struct {
		name  string
		value string
	}{
		{"atlassian.xsrf.token", c.cfg.XsrfToken},
		{"JSESSIONID", c.cfg.SessionID},
		{"seraph.rememberme.cookie", c.cfg.RememberMe},
		{"GCILB", c.cfg.GCILB},
		{"GCLB", c.cfg.GCLB},
	}

	var cookiePairs []string
	for _, cookie := range cookies {
		if cookie.value != "" {
			// Built by hand: net/http's RFC 6265 validation drops GCLB values containing double quotes.
			cookiePairs = append(cookiePairs, fmt.Sprintf("%s=%s", cookie.name, cookie.value))
		}
	}

	if len(cookiePairs) > 0 {
		req.Header.Set("Cookie", strings.Join(cookiePairs, "; "))
	}
}

func (c *dcClient) SearchIssuesWithHistory(ctx context.Context, jql string, startAt int, maxResults int) (*SearchResponse, error) {
	cacheKey := fmt.Sprintf("search:%s:%d:%d", jql, startAt, maxResults)
	if val, ok := c.responses.get(cacheKey); ok {
		return val.(*SearchResponse), nil
	}

	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", fmt.Sprintf("%d", startAt))
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("fields", searchFields)
	params.Set("expand", "changelog")

	searchURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.cfg.BaseURL, params.Encode())
	log.Info().Int("startAt", startAt).Msg("Requesting issues from Jira")
	log.Debug().Str("url", searchURL).Str("jql", jql).Msg("Jira search details")

	var result SearchResponse
	if err := c.get(ctx, searchURL, "search", &result); err != nil {
		return nil, err
	}

	c.responses.put(cacheKey, &result)
	return &result, nil
}

func (c *dcClient) GetIssue(ctx context.Context, key string) (*IssueDTO, error) {
	cacheKey := "issue:" + key
	if val, ok := c.responses.get(cacheKey); ok {
		return val.(*IssueDTO), nil
	}

	params := url.Values{}
	params.Set("fields", searchFields)
	params.Set("expand", "changelog")
	issueURL := fmt.Sprintf("%s/rest/api/2/issue/%s?%s", c.cfg.BaseURL, url.PathEscape(key), params.Encode())

	var issue IssueDTO
	if err := c.get(ctx, issueURL, "issue "+key, &issue); err != nil {
		return nil, err
	}

	c.responses.put(cacheKey, &issue)
	return &issue, nil
}

// get performs a throttled, authenticated GET and decodes the JSON body into out.
func (c *dcClient) get(ctx context.Context, target, what string, out any) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.authenticateRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jira request for %s failed: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w (%d): check the token or session cookies", ErrAuth, resp.StatusCode)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, what)
		case http.StatusTooManyRequests:
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				return fmt.Errorf("%w: retry after %s seconds", ErrRateLimited, retryAfter)
			}
			return ErrRateLimited
		default:
			return fmt.Errorf("jira API returned status %d for %s", resp.StatusCode, what)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Jira %s response: %w", what, err)
	}
	return nil
}
