package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"sla-mcp/internal/jira"
)

type GeneratorConfig struct {
	Scenario string // "steady", "pressure" or "dependency"
	Count    int
	Seed     uint64
	Now      time.Time
}

var priorities = []struct {
	name   string
	weight float64
}{
	{"Highest", 0.05},
	{"High", 0.15},
	{"Medium", 0.45},
	{"Low", 0.25},
	{"Lowest", 0.10},
}

var agents = []string{"alice.rossi", "marco.bianchi", "giulia.verdi", "luca.neri"}

// Generate builds issue snapshots with a status changelog spread over the
// working days before cfg.Now.
func Generate(cfg GeneratorConfig) []jira.IssueDTO {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))

	// Scale: reaction and resolution residency in hours.
	reactK, reactLambda := 1.5, 0.4
	resolveK, resolveLambda := 1.8, 6.0
	switch cfg.Scenario {
	case "pressure":
		reactK, reactLambda = 0.9, 1.2
		resolveK, resolveLambda = 0.9, 20.0
	case "dependency":
		resolveLambda = 9.0
	}

	// The last arrival lands a few hours before cfg.Now so some issues are still open.
	span := time.Duration(cfg.Count) * 3 * time.Hour
	start := cfg.Now.Add(-span)

	issues := make([]jira.IssueDTO, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		key := fmt.Sprintf("DEMO-%d", i+1)
		priority := pickPriority(rng)
		issueType := "Bug"
		if rng.Float64() < 0.2 {
			issueType = "Task"
		}

		arrival := start.Add(time.Duration(i) * 3 * time.Hour).Add(time.Duration(rng.IntN(120)) * time.Minute)
		if priority != "Highest" {
			arrival = businessHours(arrival)
		}
		if !arrival.Before(cfg.Now) {
			arrival = cfg.Now.Add(-time.Duration(1+rng.IntN(30)) * time.Minute)
		}

		b := newBuilder(key, priority, issueType, arrival)

		// Some issues are triaged from the backlog before entering the support queue.
		queued := arrival
		if rng.Float64() < 0.3 {
			queued = arrival.Add(time.Duration(5+rng.IntN(60)) * time.Minute)
			b.status(queued, "Backlog", "Open", agents[rng.IntN(len(agents))])
		}

		tStart := queued.Add(hours(weibullSample(rng, reactK, reactLambda)))
		if !tStart.Before(cfg.Now) {
			issues = append(issues, b.dto())
			continue
		}
		agent := agents[rng.IntN(len(agents))]
		b.status(tStart, "Open", "In Progress", agent)

		cursor := tStart
		residency := hours(weibullSample(rng, resolveK, resolveLambda))
		if cfg.Scenario == "dependency" && rng.Float64() < 0.5 {
			tWait := cursor.Add(residency / 3)
			wait := hours(2 + rng.Float64()*16)
			if !tWait.Before(cfg.Now) {
				issues = append(issues, b.dto())
				continue
			}
			if rng.Float64() < 0.5 {
				b.status(tWait, "In Progress", "Waiting for Customer", agent)
				if tResume := tWait.Add(wait); tResume.Before(cfg.Now) {
					b.status(tResume, "Waiting for Customer", "In Progress", agent)
				} else {
					issues = append(issues, b.dto())
					continue
				}
			} else {
				b.field(tWait, "Dependency", "", "Vendor", agent)
				if tResume := tWait.Add(wait); tResume.Before(cfg.Now) {
					b.field(tResume, "Dependency", "Vendor", "", agent)
				} else {
					issues = append(issues, b.dto())
					continue
				}
			}
			cursor = cursor.Add(wait)
		}

		tDone := cursor.Add(residency)
		if tDone.Before(cfg.Now) {
			b.status(tDone, "In Progress", "Done", agent)
			b.resolve(tDone)
		}
		issues = append(issues, b.dto())
	}
	return issues
}

type builder struct {
	issue jira.IssueDTO
	last  time.Time
}

func newBuilder(key, priority, issueType string, created time.Time) *builder {
	d := jira.IssueDTO{Key: key, Changelog: &jira.ChangelogDTO{}}
	d.Fields.Summary = fmt.Sprintf("Synthetic %s %s", priority, issueType)
	d.Fields.Priority = &jira.NamedDTO{Name: priority}
	d.Fields.IssueType.Name = issueType
	d.Fields.Status.Name = "Open"
	d.Fields.Created = jira.FormatTime(created)
	return &builder{issue: d, last: created}
}

func (b *builder) status(at time.Time, from, to, author string) {
	b.field(at, "status", from, to, author)
	b.issue.Fields.Status.Name = to
}

func (b *builder) field(at time.Time, field, from, to, author string) {
	h := jira.HistoryDTO{ID: fmt.Sprint(len(b.issue.Changelog.Histories) + 1), Created: jira.FormatTime(at)}
	h.Author.Name = author
	h.Items = []jira.ItemDTO{{Field: field, FromString: from, ToString: to}}
	b.issue.Changelog.Histories = append(b.issue.Changelog.Histories, h)
	b.last = at
}

func (b *builder) resolve(at time.Time) {
	b.issue.Fields.Resolution = &jira.NamedDTO{Name: "Fixed"}
	b.issue.Fields.ResolutionDate = jira.FormatTime(at)
}

func (b *builder) dto() jira.IssueDTO {
	d := b.issue
	d.Fields.Updated = jira.FormatTime(b.last)
	d.Changelog.Total = len(d.Changelog.Histories)
	d.Changelog.MaxResults = d.Changelog.Total
	return d
}

func pickPriority(rng *rand.Rand) string {
	u := rng.Float64()
	for _, p := range priorities {
		if u < p.weight {
			return p.name
		}
		u -= p.weight
	}
	return priorities[len(priorities)-1].name
}

// businessHours moves t forward into a weekday between 09:00 and 18:00.
func businessHours(t time.Time) time.Time {
	for {
		switch {
		case t.Weekday() == time.Saturday || t.Weekday() == time.Sunday:
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 9, t.Minute(), 0, 0, t.Location())
		case t.Hour() < 9:
			t = time.Date(t.Year(), t.Month(), t.Day(), 9, t.Minute(), 0, 0, t.Location())
		case t.Hour() >= 18:
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 9, t.Minute(), 0, 0, t.Location())
		default:
			return t
		}
	}
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}
