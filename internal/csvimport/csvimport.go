// Package csvimport reads issue exports in which per-status durations were
// already tabulated into columns, and feeds them to the SLA engine.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sla-mcp/internal/sla"

	"github.com/rs/zerolog/log"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{"Key", "Priority", "Status", "Created", "Summary", "Issue Type", "Open", "Backlog"}

// metaColumns describe the issue; every other column holds minutes spent in a status.
var metaColumns = map[string]bool{
	"key":        true,
	"priority":   true,
	"status":     true,
	"created":    true,
	"summary":    true,
	"issue type": true,
}

var createdLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"02/Jan/06 3:04 PM",
}

// Document is the parsed content of one export.
type Document struct {
	Issues []sla.TabulatedIssue
	// StatusColumns lists the duration columns in header order.
	StatusColumns []string
	// Skipped counts rows with fewer cells than the header.
	Skipped int
}

// ParseFile opens and parses an export from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a header row followed by one row per issue. Rows shorter than
// the header are skipped; unparseable duration cells count as absent.
func Parse(r io.Reader) (*Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := index[strings.ToLower(name)]; !dup {
			index[strings.ToLower(name)] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv header is missing required columns: %s", strings.Join(missing, ", "))
	}

	doc := &Document{}
	var statusIdx []int
	for i, name := range header {
		if name == "" || metaColumns[strings.ToLower(name)] {
			continue
		}
		doc.StatusColumns = append(doc.StatusColumns, name)
		statusIdx = append(statusIdx, i)
	}

	cell := func(row []string, name string) string {
		return strings.TrimSpace(row[index[strings.ToLower(name)]])
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if len(row) < len(header) {
			doc.Skipped++
			continue
		}

		issue := sla.TabulatedIssue{
			Key:       cell(row, "Key"),
			Summary:   cell(row, "Summary"),
			Priority:  cell(row, "Priority"),
			Status:    cell(row, "Status"),
			IssueType: cell(row, "Issue Type"),
			Created:   parseCreated(cell(row, "Created")),
			Minutes:   make(map[string]float64, len(statusIdx)),
		}
		for _, i := range statusIdx {
			v, ok := ParseMinutes(row[i])
			if !ok {
				log.Debug().Str("key", issue.Key).Str("column", header[i]).Str("value", row[i]).Msg("Ignoring unparseable duration cell")
				continue
			}
			issue.Minutes[header[i]] += v
		}
		doc.Issues = append(doc.Issues, issue)
	}

	if doc.Skipped > 0 {
		log.Debug().Int("skipped", doc.Skipped).Msg("Skipped short csv rows")
	}
	return doc, nil
}

// ParseMinutes reads a duration cell, accepting a comma decimal separator.
// An empty cell is zero.
func ParseMinutes(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			// 1.234,5
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseCreated(s string) time.Time {
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Evaluate runs every issue the policy allows through the engine, keeping
// document order.
func Evaluate(engine *sla.Engine, doc *Document) []sla.Result {
	policy := engine.Policy()
	results := make([]sla.Result, 0, len(doc.Issues))
	for _, issue := range doc.Issues {
		if !policy.Allows(issue.IssueType) {
			continue
		}
		results = append(results, engine.EvaluateTabulated(issue))
	}
	return results
}
