package jira

import (
	"strings"

	"sla-mcp/internal/sla"

	"github.com/rs/zerolog/log"
)

// MapIssue transforms a Jira DTO into the issue shape evaluated by the SLA engine.
// History entries with unparseable timestamps are dropped.
func MapIssue(item IssueDTO) sla.Issue {
	issue := sla.Issue{
		Key:       item.Key,
		Summary:   item.Fields.Summary,
		Status:    item.Fields.Status.Name,
		IssueType: item.Fields.IssueType.Name,
	}
	if item.Fields.Priority != nil {
		issue.Priority = item.Fields.Priority.Name
	}

	if t, err := ParseTime(item.Fields.Created); err == nil {
		issue.Created = t
	} else {
		log.Debug().Str("key", item.Key).Str("created", item.Fields.Created).Msg("Unparseable creation date")
	}

	if item.Fields.ResolutionDate != "" {
		if t, err := ParseTime(item.Fields.ResolutionDate); err == nil {
			issue.Resolved = &t
		}
	}

	if item.Changelog == nil {
		return issue
	}

	for _, h := range item.Changelog.Histories {
		at, err := ParseTime(h.Created)
		if err != nil {
			log.Debug().Str("key", item.Key).Str("created", h.Created).Msg("Skipping history entry with unparseable date")
			continue
		}

		author := h.Author.DisplayName
		if author == "" {
			author = h.Author.Name
		}

		entry := sla.ChangelogEntry{Author: author, At: at}
		for _, itm := range h.Items {
			entry.Changes = append(entry.Changes, sla.FieldChange{
				Field: strings.TrimSpace(itm.Field),
				From:  itm.FromString,
				To:    itm.ToString,
			})
		}
		issue.Changelog = append(issue.Changelog, entry)
	}

	return issue
}

// MapIssues maps a batch of DTOs, preserving order.
func MapIssues(items []IssueDTO) []sla.Issue {
	out := make([]sla.Issue, 0, len(items))
	for _, item := range items {
		out = append(out, MapIssue(item))
	}
	return out
}
