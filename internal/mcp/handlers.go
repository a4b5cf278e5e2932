package mcp

import (
	"context"
	"fmt"
	"time"

	"sla-mcp/internal/sla"
	"sla-mcp/internal/tracker"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type reportArgs struct {
	JQL      string `json:"jql,omitempty"`
	Source   string `json:"source,omitempty"`
	OpenOnly bool   `json:"open_only,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type issueArgs struct {
	Key    string `json:"key"`
	JQL    string `json:"jql,omitempty"`
	Source string `json:"source,omitempty"`
}

type breachArgs struct {
	JQL            string `json:"jql,omitempty"`
	Source         string `json:"source,omitempty"`
	HorizonMinutes int    `json:"horizon_minutes,omitempty"`
}

type policyArgs struct{}

func (s *Server) handleReport(ctx context.Context, _ *mcp.CallToolRequest, args reportArgs) (*mcp.CallToolResult, any, error) {
	log.Info().Str("jql", args.JQL).Str("source", args.Source).Msg("Tool call: sla_report")

	report, err := s.tracker.Report(ctx, tracker.Query{
		JQL:      args.JQL,
		Source:   args.Source,
		OpenOnly: args.OpenOnly,
		Priority: args.Priority,
	})
	if err != nil {
		return nil, nil, err
	}

	guidance := []string{
		"compliancePercent is metResolutionCount over totalIssues. Open issues are included with their state at generatedAt: met while their resolution clock is still within target.",
		"withinTolerance compares a priority's compliance with its targetPercent.",
	}
	if report.TotalIssues == 0 {
		guidance = append(guidance, "NO ISSUES: the query or cached source is empty. Verify the JQL with the user before drawing conclusions.")
	}
	return textResult(report, guidance...), nil, nil
}

func (s *Server) handleIssue(ctx context.Context, _ *mcp.CallToolRequest, args issueArgs) (*mcp.CallToolResult, any, error) {
	log.Info().Str("key", args.Key).Msg("Tool call: sla_issue")

	ir, err := s.tracker.Issue(ctx, tracker.Query{JQL: args.JQL, Source: args.Source}, args.Key)
	if err != nil {
		return nil, nil, err
	}

	var guidance []string
	if ir.Result.Paused {
		guidance = append(guidance, "The issue is PAUSED: its resolution clock is stopped and no resolution breach is projected.")
	}
	if ir.Result.Open && ir.Result.Anchors.WorkStart == nil {
		guidance = append(guidance, "Work has not started: reaction time is still accruing.")
	}
	return textResult(ir, guidance...), nil, nil
}

func (s *Server) handleBreaches(ctx context.Context, _ *mcp.CallToolRequest, args breachArgs) (*mcp.CallToolResult, any, error) {
	if args.HorizonMinutes < 0 {
		return nil, nil, fmt.Errorf("horizon_minutes must not be negative")
	}
	horizon := s.horizon
	if args.HorizonMinutes > 0 {
		horizon = time.Duration(args.HorizonMinutes) * time.Minute
	}
	log.Info().Dur("horizon", horizon).Msg("Tool call: sla_breaches")

	breaches, err := s.tracker.Breaches(ctx, tracker.Query{JQL: args.JQL, Source: args.Source}, horizon)
	if err != nil {
		return nil, nil, err
	}
	if breaches == nil {
		breaches = []sla.Result{}
	}

	res := map[string]any{
		"horizonMinutes": horizon.Minutes(),
		"count":          len(breaches),
		"breaches":       breaches,
	}
	return textResult(res), nil, nil
}

func (s *Server) handlePolicy(_ context.Context, _ *mcp.CallToolRequest, _ policyArgs) (*mcp.CallToolResult, any, error) {
	return textResult(s.tracker.Engine().Policy()), nil, nil
}
