package engine

import (
	"testing"
	"time"

	"sla-mcp/internal/calendar"
	"sla-mcp/internal/jira"
	"sla-mcp/internal/sla"
)

func TestGenerate(t *testing.T) {
	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	policy := sla.DefaultPolicy().WithTimezone("UTC")
	e := sla.NewEngine(policy, calendar.New(time.UTC, policy.Holidays))

	for _, scenario := range []string{"steady", "pressure", "dependency"} {
		t.Run(scenario, func(t *testing.T) {
			issues := Generate(GeneratorConfig{Scenario: scenario, Count: 120, Seed: 7, Now: now})
			if len(issues) != 120 {
				t.Fatalf("got %d issues", len(issues))
			}

			seen := map[string]bool{}
			done := 0
			for _, dto := range issues {
				if seen[dto.Key] {
					t.Fatalf("duplicate key %s", dto.Key)
				}
				seen[dto.Key] = true

				issue := jira.MapIssue(dto)
				if issue.Created.After(now) {
					t.Errorf("%s created in the future", dto.Key)
				}
				for i, entry := range issue.Changelog {
					if entry.At.After(now) || (i > 0 && entry.At.Before(issue.Changelog[i-1].At)) {
						t.Errorf("%s changelog out of order at %d", dto.Key, i)
					}
				}
				if issue.Status == "Done" {
					done++
					if issue.Resolved == nil {
						t.Errorf("%s done without resolution date", dto.Key)
					}
				}

				res := e.Evaluate(issue, now)
				if res.ReactionMinutes < 0 || res.ResolutionMinutes < 0 {
					t.Errorf("%s negative minutes: %+v", dto.Key, res)
				}
			}
			if done == 0 || done == len(issues) {
				t.Errorf("expected a mix of open and done issues, got %d done", done)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	a := Generate(GeneratorConfig{Scenario: "steady", Count: 20, Seed: 3, Now: now})
	b := Generate(GeneratorConfig{Scenario: "steady", Count: 20, Seed: 3, Now: now})
	for i := range a {
		if a[i].Fields.Created != b[i].Fields.Created || a[i].Fields.Status.Name != b[i].Fields.Status.Name {
			t.Fatalf("seeded generation differs at %s", a[i].Key)
		}
	}
}

func TestBusinessHours(t *testing.T) {
	tests := []struct {
		in, want time.Time
	}{
		{time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC), time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)},
		{time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC), time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)},
		{time.Date(2025, 3, 7, 19, 15, 0, 0, time.UTC), time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC)},
		{time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := businessHours(tt.in); !got.Equal(tt.want) {
			t.Errorf("businessHours(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
