package jira

import (
	"testing"
	"time"
)

func TestResponseCache_SlidingExpiry(t *testing.T) {
	clock := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	rc := newResponseCache(10 * time.Minute)
	rc.now = func() time.Time { return clock }

	rc.put("issue:SUP-1", "v1")

	// Every hit within the TTL renews it, up to maxRenewals times.
	for i := 0; i < maxRenewals; i++ {
		clock = clock.Add(9 * time.Minute)
		if _, ok := rc.get("issue:SUP-1"); !ok {
			t.Fatalf("entry expired after renewal %d", i)
		}
	}

	clock = clock.Add(9 * time.Minute)
	if v, ok := rc.get("issue:SUP-1"); !ok || v != "v1" {
		t.Fatalf("entry should still be valid without renewal, got %v %v", v, ok)
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok := rc.get("issue:SUP-1"); ok {
		t.Error("entry should expire once renewals are exhausted")
	}
	if _, ok := rc.get("missing"); ok {
		t.Error("unexpected hit for missing key")
	}
}
