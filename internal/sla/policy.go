package sla

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"sla-mcp/internal/calendar"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultReactionMinutes applies when neither a per-tier nor a flat reaction target is configured.
	DefaultReactionMinutes = 15
	// DefaultResolutionMinutes (40 business hours) applies to tiers without a resolution target.
	DefaultResolutionMinutes = 40 * 60
	// DefaultTaskResolutionMinutes is the allowance for task-type issues (10 business days).
	DefaultTaskResolutionMinutes = 10 * 9 * 60
	// FallbackTier is used when a priority matches neither the configured nor the built-in map.
	FallbackTier = "Major"

	complianceEpsilon = 0.001
	defaultTimezone   = "Europe/Rome"
)

// defaultPriorityTiers is consulted when the configured map has no entry for a priority.
var defaultPriorityTiers = map[string]string{
	"highest":  "Blocker",
	"blocker":  "Blocker",
	"high":     "Critical",
	"critical": "Critical",
	"medium":   "Major",
	"major":    "Major",
	"low":      "Minor",
	"minor":    "Minor",
	"lowest":   "Trivial",
	"trivial":  "Trivial",
}

// Labels names the workflow values the engine reacts to.
type Labels struct {
	Intake            string   `json:"intake" yaml:"intake"`
	Active            []string `json:"active" yaml:"active"`
	Done              string   `json:"done" yaml:"done"`
	Pause             []string `json:"pause" yaml:"pause"`
	DependencyTokens  []string `json:"dependencyTokens" yaml:"dependency_tokens"`
	PauseDependencies []string `json:"pauseDependencies" yaml:"pause_dependencies"`
	LinkField         string   `json:"linkField" yaml:"link_field"`
	LinkMarker        string   `json:"linkMarker" yaml:"link_marker"`
}

func (l Labels) IsIntake(status string) bool { return status != "" && strings.EqualFold(status, l.Intake) }
func (l Labels) IsActive(status string) bool { return containsFold(l.Active, status) }
func (l Labels) IsDone(status string) bool   { return status != "" && strings.EqualFold(status, l.Done) }

// IsDependency reports whether value is one of the external-dependency tokens.
func (l Labels) IsDependency(value string) bool { return containsFold(l.DependencyTokens, value) }

// IsPaused reports whether time spent in the event does not count toward resolution.
func (l Labels) IsPaused(e TimelineEvent) bool {
	return containsFold(l.Pause, e.Status) || containsFold(l.PauseDependencies, e.Dependency)
}

// IsCausalLink reports whether a field change records the creation of a causal link.
func (l Labels) IsCausalLink(c FieldChange) bool {
	if l.LinkField == "" || !strings.EqualFold(c.Field, l.LinkField) || c.To == "" {
		return false
	}
	return l.LinkMarker == "" || strings.Contains(strings.ToLower(c.To), strings.ToLower(l.LinkMarker))
}

// Policy is the SLA configuration of a project.
type Policy struct {
	// Tiers are ordered from the most to the least severe.
	Tiers                 []string           `json:"tiers"`
	PriorityTiers         map[string]string  `json:"priorityTiers,omitempty"`
	ReactionMinutes       float64            `json:"reactionMinutes,omitempty"`
	TierReactionMinutes   map[string]float64 `json:"tierReactionMinutes,omitempty"`
	TierResolutionMinutes map[string]float64 `json:"tierResolutionMinutes,omitempty"`
	// Tolerances maps a tier or priority name to the share of issues (percent)
	// that must meet their resolution target.
	Tolerances            map[string]float64 `json:"tolerances,omitempty"`
	ExcludeLunch          bool               `json:"excludeLunch"`
	AllowedIssueTypes     []string           `json:"allowedIssueTypes,omitempty"`
	TaskIssueType         string             `json:"taskIssueType"`
	TaskResolutionMinutes float64            `json:"taskResolutionMinutes"`
	// ContinuousCutover enables the 24x7 regime for the highest tier on issues
	// whose effective creation is on or after it. Zero disables the regime.
	ContinuousCutover time.Time             `json:"continuousCutover,omitempty"`
	Labels            Labels                `json:"labels"`
	Timezone          string                `json:"timezone"`
	Holidays          calendar.HolidayTable `json:"holidays"`
}

// DefaultPolicy returns the built-in support-desk policy.
func DefaultPolicy() Policy {
	return Policy{
		Tiers:           []string{"Blocker", "Critical", "Major", "Minor", "Trivial"},
		ReactionMinutes: DefaultReactionMinutes,
		TierResolutionMinutes: map[string]float64{
			"Blocker":  4 * 60,
			"Critical": 8 * 60,
			"Major":    40 * 60,
			"Minor":    80 * 60,
			"Trivial":  160 * 60,
		},
		Tolerances: map[string]float64{
			"Blocker":  95,
			"Critical": 95,
			"Major":    90,
			"Minor":    85,
			"Trivial":  80,
		},
		TaskIssueType:         "Task",
		TaskResolutionMinutes: DefaultTaskResolutionMinutes,
		ContinuousCutover:     localMidnight(2025, time.January, 1, defaultTimezone),
		Labels: Labels{
			Intake:            "Open",
			Active:            []string{"In Progress", "Work in Progress", "Analysis"},
			Done:              "Done",
			Pause:             []string{"Waiting for Customer", "On Hold"},
			DependencyTokens:  []string{"Customer", "Vendor", "Third Party", "Release"},
			PauseDependencies: []string{"Customer", "Vendor", "Third Party"},
			LinkField:         "Link",
			LinkMarker:        "caused by",
		},
		Timezone: defaultTimezone,
		Holidays: calendar.DefaultHolidays(),
	}
}

// HighestTier returns the most severe configured tier.
func (p Policy) HighestTier() string {
	if len(p.Tiers) == 0 {
		return ""
	}
	return p.Tiers[0]
}

// TierRank returns the position of a tier in the severity order, or len(Tiers) if unknown.
func (p Policy) TierRank(tier string) int {
	for i, t := range p.Tiers {
		if strings.EqualFold(t, tier) {
			return i
		}
	}
	return len(p.Tiers)
}

// Allows reports whether an issue type passes the configured filter.
func (p Policy) Allows(issueType string) bool {
	return len(p.AllowedIssueTypes) == 0 || containsFold(p.AllowedIssueTypes, issueType)
}

// IsTask reports whether the issue type gets the task allowance.
func (p Policy) IsTask(issueType string) bool {
	return p.TaskIssueType != "" && strings.EqualFold(p.TaskIssueType, issueType)
}

// Calendar builds the working-time calendar described by the policy.
func (p Policy) Calendar() (*calendar.Calendar, error) {
	loc, err := p.Location()
	if err != nil {
		return nil, err
	}
	return calendar.New(loc, p.Holidays), nil
}

// Location loads the policy timezone. An empty timezone is UTC.
func (p Policy) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// WithTimezone switches the policy timezone. A cutover at local midnight is a
// date, so it moves to midnight of the same date in the new zone. An
// unloadable timezone is kept as given and reported later by Calendar.
func (p Policy) WithTimezone(tz string) Policy {
	from, fromErr := p.Location()
	p.Timezone = tz
	to, toErr := p.Location()
	if fromErr != nil || toErr != nil || p.ContinuousCutover.IsZero() {
		return p
	}
	local := p.ContinuousCutover.In(from)
	if isMidnight(local) {
		p.ContinuousCutover = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, to)
	}
	return p
}

func localMidnight(year int, month time.Month, day int, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// policyFile is the on-disk shape of a policy. Absent keys keep their defaults.
type policyFile struct {
	Tiers                 []string           `yaml:"tiers,omitempty"`
	PriorityTiers         map[string]string  `yaml:"priority_tiers,omitempty"`
	ReactionMinutes       *float64           `yaml:"reaction_minutes,omitempty"`
	TierReactionMinutes   map[string]float64 `yaml:"tier_reaction_minutes,omitempty"`
	TierResolutionMinutes map[string]float64 `yaml:"tier_resolution_minutes,omitempty"`
	Tolerances            map[string]float64 `yaml:"tolerances,omitempty"`
	ExcludeLunch          *bool              `yaml:"exclude_lunch,omitempty"`
	AllowedIssueTypes     []string           `yaml:"allowed_issue_types,omitempty"`
	TaskIssueType         *string            `yaml:"task_issue_type,omitempty"`
	TaskResolutionMinutes *float64           `yaml:"task_resolution_minutes,omitempty"`
	ContinuousCutover     *string            `yaml:"continuous_cutover,omitempty"`
	Labels                *Labels            `yaml:"labels,omitempty"`
	Timezone              *string            `yaml:"timezone,omitempty"`
	Holidays              *holidayFile       `yaml:"holidays,omitempty"`
}

type holidayFile struct {
	Fixed   []string         `yaml:"fixed"`
	Movable map[int][]string `yaml:"movable,omitempty"`
}

// MarshalPolicy encodes a policy in the file format read by ParsePolicy.
func MarshalPolicy(p Policy) ([]byte, error) {
	cutover := "none"
	if !p.ContinuousCutover.IsZero() {
		cutover = p.ContinuousCutover.Format(time.RFC3339)
		if loc, err := p.Location(); err == nil && isMidnight(p.ContinuousCutover.In(loc)) {
			cutover = p.ContinuousCutover.In(loc).Format(time.DateOnly)
		}
	}
	holidays := &holidayFile{Movable: make(map[int][]string)}
	for _, d := range p.Holidays.Fixed {
		holidays.Fixed = append(holidays.Fixed, monthDay(d))
	}
	for year, days := range p.Holidays.Movable {
		for _, d := range days {
			holidays.Movable[year] = append(holidays.Movable[year], monthDay(d))
		}
	}

	labels := p.Labels
	f := policyFile{
		Tiers:                 p.Tiers,
		PriorityTiers:         p.PriorityTiers,
		ReactionMinutes:       &p.ReactionMinutes,
		TierReactionMinutes:   p.TierReactionMinutes,
		TierResolutionMinutes: p.TierResolutionMinutes,
		Tolerances:            p.Tolerances,
		ExcludeLunch:          &p.ExcludeLunch,
		AllowedIssueTypes:     p.AllowedIssueTypes,
		TaskIssueType:         &p.TaskIssueType,
		TaskResolutionMinutes: &p.TaskResolutionMinutes,
		ContinuousCutover:     &cutover,
		Labels:                &labels,
		Timezone:              &p.Timezone,
		Holidays:              holidays,
	}
	return yaml.Marshal(f)
}

func monthDay(d calendar.MonthDay) string {
	return fmt.Sprintf("%02d-%02d", int(d.Month), d.Day)
}

// LoadPolicy reads a YAML (or JSON) policy file on top of DefaultPolicy.
// A missing path yields the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No SLA policy file found, using defaults")
			return policy, nil
		}
		return policy, fmt.Errorf("failed to read policy: %w", err)
	}

	return ParsePolicy(data)
}

// ParsePolicy decodes a policy document on top of DefaultPolicy.
func ParsePolicy(data []byte) (Policy, error) {
	policy := DefaultPolicy()

	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return policy, fmt.Errorf("failed to decode policy: %w", err)
	}

	if len(f.Tiers) > 0 {
		policy.Tiers = f.Tiers
	}
	if f.PriorityTiers != nil {
		policy.PriorityTiers = f.PriorityTiers
	}
	if f.ReactionMinutes != nil {
		policy.ReactionMinutes = *f.ReactionMinutes
	}
	if f.TierReactionMinutes != nil {
		policy.TierReactionMinutes = f.TierReactionMinutes
	}
	if f.TierResolutionMinutes != nil {
		policy.TierResolutionMinutes = f.TierResolutionMinutes
	}
	if f.Tolerances != nil {
		policy.Tolerances = f.Tolerances
	}
	if f.ExcludeLunch != nil {
		policy.ExcludeLunch = *f.ExcludeLunch
	}
	if f.AllowedIssueTypes != nil {
		policy.AllowedIssueTypes = f.AllowedIssueTypes
	}
	if f.TaskIssueType != nil {
		policy.TaskIssueType = *f.TaskIssueType
	}
	if f.TaskResolutionMinutes != nil {
		policy.TaskResolutionMinutes = *f.TaskResolutionMinutes
	}
	if f.Labels != nil {
		policy.Labels = mergeLabels(policy.Labels, *f.Labels)
	}
	if f.Timezone != nil {
		policy = policy.WithTimezone(*f.Timezone)
	}
	if f.ContinuousCutover != nil {
		loc, err := policy.Location()
		if err != nil {
			loc = time.UTC
		}
		cutover, err := ParseCutover(*f.ContinuousCutover, loc)
		if err != nil {
			return policy, err
		}
		policy.ContinuousCutover = cutover
	}
	if f.Holidays != nil {
		table, err := f.Holidays.table()
		if err != nil {
			return policy, err
		}
		policy.Holidays = table
	}

	return policy, nil
}

// ParseCutover accepts a date (YYYY-MM-DD), taken as midnight in loc, or an
// RFC3339 instant. An empty string or "none" disables the continuous regime.
func ParseCutover(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid continuous cutover %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return t, nil
}

func (h holidayFile) table() (calendar.HolidayTable, error) {
	table := calendar.HolidayTable{Movable: make(map[int][]calendar.MonthDay)}
	for _, s := range h.Fixed {
		t, err := time.Parse("01-02", s)
		if err != nil {
			return table, fmt.Errorf("invalid fixed holiday %q: expected MM-DD", s)
		}
		table.Fixed = append(table.Fixed, calendar.MonthDay{Month: t.Month(), Day: t.Day()})
	}
	for year, days := range h.Movable {
		for _, s := range days {
			t, err := time.Parse("01-02", s)
			if err != nil {
				return table, fmt.Errorf("invalid movable holiday %q for %d: expected MM-DD", s, year)
			}
			table.Movable[year] = append(table.Movable[year], calendar.MonthDay{Month: t.Month(), Day: t.Day()})
		}
	}
	return table, nil
}

func mergeLabels(base, override Labels) Labels {
	if override.Intake != "" {
		base.Intake = override.Intake
	}
	if override.Active != nil {
		base.Active = override.Active
	}
	if override.Done != "" {
		base.Done = override.Done
	}
	if override.Pause != nil {
		base.Pause = override.Pause
	}
	if override.DependencyTokens != nil {
		base.DependencyTokens = override.DependencyTokens
	}
	if override.PauseDependencies != nil {
		base.PauseDependencies = override.PauseDependencies
	}
	if override.LinkField != "" {
		base.LinkField = override.LinkField
	}
	if override.LinkMarker != "" {
		base.LinkMarker = override.LinkMarker
	}
	return base
}

func containsFold(values []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func lookupFold(m map[string]float64, key string) (float64, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return 0, false
}
