package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

var sourceProps = map[string]*jsonschema.Schema{
	"jql":    str("JQL selecting the issues. The matching issues are synced from Jira into the local cache first."),
	"source": str("Id of a cached source (e.g. 'demo' or a 'jql-…' id returned by a previous report). Read from the cache without contacting Jira."),
}

func withSource(extra map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(sourceProps)+len(extra))
	for k, v := range sourceProps {
		props[k] = v
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "sla_report",
		Description: "Evaluate the reaction and resolution SLA of every issue selected by a JQL query or cached source, " +
			"and aggregate compliance per priority. Business-hours issues are measured on the working calendar " +
			"(weekdays 09:00-18:00 minus holidays); urgent tiers after the cutover on the 24/7 clock. " +
			"Guidance: Present compliance against each priority's target percent. Use 'sla_issue' to explain an individual result.",
		InputSchema: object(nil, withSource(map[string]*jsonschema.Schema{
			"open_only": {Type: "boolean", Description: "Only list issues that are not completed. Totals still cover every issue."},
			"priority":  str("Only list issues of this priority (e.g. 'Highest')."),
		})),
	}, s.handleReport)

	mcp.AddTool(server, &mcp.Tool{
		Name: "sla_issue",
		Description: "Evaluate a single issue and return its anchors (queue entry, work start, completion), " +
			"per-status minute breakdown and flattened changelog. " +
			"Guidance: Use the breakdown and changelog to explain where SLA time was spent or paused.",
		InputSchema: object([]string{"key"}, withSource(map[string]*jsonschema.Schema{
			"key": str("The issue key (e.g. SUP-123)"),
		})),
	}, s.handleIssue)

	mcp.AddTool(server, &mcp.Tool{
		Name: "sla_breaches",
		Description: "List open issues whose reaction or resolution SLA will breach within the horizon, " +
			"soonest first. While an issue is paused its resolution clock is not projected; a reaction breach still can be. " +
			"Guidance: Breach instants are projected on the issue's own calendar; do not extrapolate them yourself.",
		InputSchema: object(nil, withSource(map[string]*jsonschema.Schema{
			"horizon_minutes": {Type: "integer", Description: "Look-ahead in minutes (defaults to the server's configured horizon)"},
		})),
	}, s.handleBreaches)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sla_policy",
		Description: "Return the effective SLA policy: tiers, priority mapping, targets, tolerances, status labels, timezone, continuous cutover and holidays.",
		InputSchema: object(nil, map[string]*jsonschema.Schema{}),
	}, s.handlePolicy)
}
