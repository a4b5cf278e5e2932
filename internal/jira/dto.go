package jira

import "time"

// SearchResponse is the top-level container for Jira search results.
type SearchResponse struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Issues     []IssueDTO `json:"issues"`
}

// IssueDTO represents a single issue in the Jira search response.
type IssueDTO struct {
	Key       string        `json:"key"`
	Fields    FieldsDTO     `json:"fields"`
	Changelog *ChangelogDTO `json:"changelog,omitempty"`
}

// NamedDTO is the common {id, name} shape of Jira reference fields.
type NamedDTO struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// FieldsDTO contains the specific fields we care about.
type FieldsDTO struct {
	Summary   string `json:"summary"`
	IssueType struct {
		Name    string `json:"name"`
		Subtask bool   `json:"subtask"`
	} `json:"issuetype"`
	Status struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		StatusCategory struct {
			Key string `json:"key"`
		} `json:"statusCategory"`
	} `json:"status"`
	Priority       *NamedDTO `json:"priority,omitempty"`
	Resolution     *NamedDTO `json:"resolution,omitempty"`
	ResolutionDate string    `json:"resolutiondate,omitempty"`
	Created        string    `json:"created"`
	Updated        string    `json:"updated"`
}

// ChangelogDTO contains historical transitions.
type ChangelogDTO struct {
	StartAt    int          `json:"startAt"`
	MaxResults int          `json:"maxResults"`
	Total      int          `json:"total"`
	Histories  []HistoryDTO `json:"histories"`
}

// HistoryDTO is a single entry in the changelog.
type HistoryDTO struct {
	ID     string `json:"id,omitempty"`
	Author struct {
		Name        string `json:"name,omitempty"`
		DisplayName string `json:"displayName,omitempty"`
	} `json:"author"`
	Created string    `json:"created"`
	Items   []ItemDTO `json:"items"`
}

// ItemDTO is a single field change within a history entry.
type ItemDTO struct {
	Field      string `json:"field"`
	FieldType  string `json:"fieldtype,omitempty"`
	ToString   string `json:"toString"`
	FromString string `json:"fromString"`
	To         string `json:"to,omitempty"`   // ID
	From       string `json:"from,omitempty"` // ID
}

// TimeLayout is the timestamp format of the Jira REST API.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

// ParseTime parses a Jira timestamp, accepting RFC3339 as well.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	if t, rfcErr := time.Parse(time.RFC3339, s); rfcErr == nil {
		return t, nil
	}
	return time.Time{}, err
}

// FormatTime renders a timestamp in the Jira REST layout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
