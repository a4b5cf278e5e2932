// Package notify delivers upcoming SLA breaches to people.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"sla-mcp/internal/sla"

	"github.com/rs/zerolog/log"
)

// Breach is one projected SLA breach.
type Breach struct {
	Key      string    `json:"key"`
	Summary  string    `json:"summary,omitempty"`
	Priority string    `json:"priority,omitempty"`
	Tier     string    `json:"tier"`
	Kind     string    `json:"kind"` // reaction or resolution
	At       time.Time `json:"at"`
}

func (b Breach) id() string {
	return fmt.Sprintf("%s|%s|%d", b.Key, b.Kind, b.At.Unix())
}

// Notifier delivers breaches.
type Notifier interface {
	Notify(ctx context.Context, breaches []Breach) error
}

// FromResults lists the projected breaches of the results, earliest first.
func FromResults(results []sla.Result) []Breach {
	var out []Breach
	for _, r := range results {
		if r.ReactionBreachAt != nil {
			out = append(out, Breach{Key: r.Key, Summary: r.Summary, Priority: r.Priority, Tier: r.Tier, Kind: "reaction", At: *r.ReactionBreachAt})
		}
		if r.ResolutionBreachAt != nil {
			out = append(out, Breach{Key: r.Key, Summary: r.Summary, Priority: r.Priority, Tier: r.Tier, Kind: "resolution", At: *r.ResolutionBreachAt})
		}
	}
	slices.SortStableFunc(out, func(a, b Breach) int {
		return a.At.Compare(b.At)
	})
	return out
}

// Format renders breaches as a plain-text message.
func Format(breaches []Breach, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d SLA breach(es) approaching\n", len(breaches))
	for _, b := range breaches {
		fmt.Fprintf(&sb, "- %s [%s] %s due %s (in %s)", b.Key, b.Tier, b.Kind, b.At.Format("2006-01-02 15:04 MST"), b.At.Sub(now).Round(time.Minute))
		if b.Summary != "" {
			fmt.Fprintf(&sb, ": %s", b.Summary)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// WebhookNotifier posts a {"text": ...} JSON message to an incoming-webhook URL,
// the format accepted by Slack, Mattermost and Teams connectors.
type WebhookNotifier struct {
	url  string
	http *http.Client
	now  func() time.Time
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, http: &http.Client{Timeout: 10 * time.Second}, now: time.Now}
}

func (w *WebhookNotifier) Notify(ctx context.Context, breaches []Breach) error {
	if len(breaches) == 0 {
		return nil
	}
	if w.url == "" {
		return fmt.Errorf("webhook: missing url")
	}

	body := map[string]any{"text": Format(breaches, w.now()), "breaches": breaches}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webhook: failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	log.Info().Int("count", len(breaches)).Msg("Breach notification delivered")
	return nil
}

// LogNotifier writes breaches to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, breaches []Breach) error {
	for _, b := range breaches {
		log.Warn().
			Str("key", b.Key).
			Str("tier", b.Tier).
			Str("kind", b.Kind).
			Time("at", b.At).
			Msg("SLA breach approaching")
	}
	return nil
}

// Dispatcher forwards each breach to a notifier once. A breach whose
// projected instant moves is notified again.
type Dispatcher struct {
	notifier Notifier

	mu   sync.Mutex
	sent map[string]time.Time
}

// NewDispatcher wraps a notifier with delivery deduplication.
func NewDispatcher(n Notifier) *Dispatcher {
	return &Dispatcher{notifier: n, sent: make(map[string]time.Time)}
}

// Dispatch delivers the breaches not yet notified and forgets those that
// are already in the past. It returns how many were delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, breaches []Breach, now time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, at := range d.sent {
		if at.Before(now) {
			delete(d.sent, id)
		}
	}

	var fresh []Breach
	for _, b := range breaches {
		if _, ok := d.sent[b.id()]; !ok {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := d.notifier.Notify(ctx, fresh); err != nil {
		return 0, err
	}
	for _, b := range fresh {
		d.sent[b.id()] = b.At
	}
	return len(fresh), nil
}
