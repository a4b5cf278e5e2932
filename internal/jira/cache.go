package jira

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// maxRenewals caps how many hits may push an entry's expiry forward.
const maxRenewals = 5

// responseCache keeps decoded Jira responses for a sliding TTL so repeated
// tool calls within one conversation do not hit the server again.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*cachedResponse
	now     func() time.Time
}

type cachedResponse struct {
	value    any
	expires  time.Time
	renewals int
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, entries: make(map[string]*cachedResponse), now: time.Now}
}

func (rc *responseCache) get(key string) (any, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	e, ok := rc.entries[key]
	if !ok {
		return nil, false
	}
	now := rc.now()
	if now.After(e.expires) {
		delete(rc.entries, key)
		log.Debug().Str("key", key).Msg("Response cache entry expired")
		return nil, false
	}

	if e.renewals < maxRenewals {
		e.expires = now.Add(rc.ttl)
		e.renewals++
	}
	log.Trace().Str("key", key).Int("renewals", e.renewals).Msg("Response cache hit")
	return e.value, true
}

func (rc *responseCache) put(key string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries[key] = &cachedResponse{value: value, expires: rc.now().Add(rc.ttl)}
}
