package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sla-mcp/internal/calendar"
	"sla-mcp/internal/history"
	"sla-mcp/internal/jira"
	"sla-mcp/internal/sla"
	"sla-mcp/internal/tracker"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var now = time.Date(2025, time.March, 3, 17, 0, 0, 0, time.UTC)

func snapshot(key, priority, status string, created time.Time, transitions ...[3]any) jira.IssueDTO {
	d := jira.IssueDTO{Key: key, Changelog: &jira.ChangelogDTO{}}
	d.Fields.Summary = "summary of " + key
	d.Fields.Priority = &jira.NamedDTO{Name: priority}
	d.Fields.Status.Name = status
	d.Fields.IssueType.Name = "Bug"
	d.Fields.Created = jira.FormatTime(created)
	d.Fields.Updated = jira.FormatTime(now.Add(-time.Hour))
	for _, tr := range transitions {
		h := jira.HistoryDTO{Created: jira.FormatTime(tr[0].(time.Time))}
		h.Items = []jira.ItemDTO{{Field: "status", FromString: tr[1].(string), ToString: tr[2].(string)}}
		d.Changelog.Histories = append(d.Changelog.Histories, h)
	}
	return d
}

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	policy := sla.DefaultPolicy().WithTimezone("UTC")
	engine := sla.NewEngine(policy, calendar.New(time.UTC, policy.Holidays))

	store := history.NewStore()
	store.Upsert("demo", []jira.IssueDTO{
		snapshot("SUP-1", "Medium", "Done", time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC),
			[3]any{time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC), "Open", "In Progress"},
			[3]any{time.Date(2025, time.March, 3, 11, 0, 0, 0, time.UTC), "In Progress", "Done"}),
		snapshot("SUP-2", "Highest", "Open", time.Date(2025, time.March, 3, 16, 45, 0, 0, time.UTC),
			[3]any{time.Date(2025, time.March, 3, 16, 50, 0, 0, time.UTC), "Backlog", "Open"}),
	})
	provider := history.NewProvider(nil, store, "")
	tr := tracker.New(provider, engine, 2, "")
	tr.Now = func() time.Time { return now }

	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()
	ss, err := NewServer(tr, time.Hour, "test").MCP().Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (map[string]any, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("%s returned %d content blocks", name, len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("%s returned %T", name, res.Content[0])
	}
	if res.IsError {
		return map[string]any{"error": text.Text}, true
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("%s result is not JSON: %v", name, err)
	}
	return out, false
}

func TestListTools(t *testing.T) {
	cs := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"sla_report": false, "sla_issue": false, "sla_breaches": false, "sla_policy": false}
	for _, tool := range res.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestReportTool(t *testing.T) {
	cs := connect(t)
	out, isErr := call(t, cs, "sla_report", map[string]any{"source": "demo"})
	if isErr {
		t.Fatalf("sla_report failed: %v", out["error"])
	}
	data := out["data"].(map[string]any)
	if data["totalIssues"].(float64) != 2 || data["openIssues"].(float64) != 1 {
		t.Errorf("unexpected totals %v / %v", data["totalIssues"], data["openIssues"])
	}
	if _, ok := out["_guidance"]; !ok {
		t.Error("report should carry guidance")
	}

	out, _ = call(t, cs, "sla_report", map[string]any{"source": "demo", "open_only": true})
	results := out["data"].(map[string]any)["results"].([]any)
	if len(results) != 1 || results[0].(map[string]any)["key"] != "SUP-2" {
		t.Errorf("open_only should keep SUP-2 only, got %v", results)
	}
}

func TestIssueTool(t *testing.T) {
	cs := connect(t)
	out, isErr := call(t, cs, "sla_issue", map[string]any{"key": "sup-1", "source": "demo"})
	if isErr {
		t.Fatalf("sla_issue failed: %v", out["error"])
	}
	result := out["data"].(map[string]any)["result"].(map[string]any)
	if result["key"] != "SUP-1" || result["resolutionMinutes"].(float64) != 120 {
		t.Errorf("unexpected result %v", result)
	}

	if _, isErr := call(t, cs, "sla_issue", map[string]any{"key": "SUP-404", "source": "demo"}); !isErr {
		t.Error("unknown issue should be a tool error")
	}
}

func TestBreachesTool(t *testing.T) {
	cs := connect(t)
	// SUP-2 is a Blocker on the continuous clock with 5 reaction minutes left.
	out, isErr := call(t, cs, "sla_breaches", map[string]any{"source": "demo", "horizon_minutes": 10})
	if isErr {
		t.Fatalf("sla_breaches failed: %v", out["error"])
	}
	data := out["data"].(map[string]any)
	if data["count"].(float64) != 1 || data["horizonMinutes"].(float64) != 10 {
		t.Errorf("unexpected breaches %v", data)
	}

	out, _ = call(t, cs, "sla_breaches", map[string]any{"source": "demo", "horizon_minutes": 1})
	if out["data"].(map[string]any)["count"].(float64) != 0 {
		t.Errorf("breach beyond horizon should be dropped: %v", out["data"])
	}
}

func TestPolicyTool(t *testing.T) {
	cs := connect(t)
	out, isErr := call(t, cs, "sla_policy", map[string]any{})
	if isErr {
		t.Fatalf("sla_policy failed: %v", out["error"])
	}
	data := out["data"].(map[string]any)
	if data["timezone"] != "UTC" || len(data["tiers"].([]any)) != 5 {
		t.Errorf("unexpected policy %v", data)
	}
}
