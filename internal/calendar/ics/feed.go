// Package ics implements a demo-mode calendar provider backed by a read-only
// ICS subscription feed. Listing reflects the feed; mutations live in an
// in-memory overlay on top of the feed snapshot, which is enough for local
// development without a writable calendar account.
package ics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/Axelpuff/schedassist/internal/calendar"
)

// FeedProvider serves calendar.Provider from an ICS feed plus an overlay of
// local mutations.
type FeedProvider struct {
	feedURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	fetchedAt time.Time
	feed      []calendar.Event
	added     map[string]calendar.Event
	updated   map[string]calendar.Event
	deleted   map[string]struct{}
}

// NewFeedProvider builds a provider over the given ICS subscription URL. The
// feed is re-fetched once ttl expires; mutations survive refreshes.
func NewFeedProvider(feedURL string, client *http.Client, ttl time.Duration, now func() time.Time) *FeedProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &FeedProvider{
		feedURL: feedURL,
		client:  client,
		ttl:     ttl,
		now:     now,
		added:   make(map[string]calendar.Event),
		updated: make(map[string]calendar.Event),
		deleted: make(map[string]struct{}),
	}
}

func (p *FeedProvider) List(ctx context.Context, _ calendar.Credential, window calendar.Range) ([]calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.refreshLocked(ctx); err != nil {
		return nil, err
	}

	events := make([]calendar.Event, 0, len(p.feed)+len(p.added))
	for _, event := range p.feed {
		if _, gone := p.deleted[event.ID]; gone {
			continue
		}
		if replacement, ok := p.updated[event.ID]; ok {
			event = replacement
		}
		events = append(events, event)
	}
	for _, event := range p.added {
		if _, gone := p.deleted[event.ID]; gone {
			continue
		}
		events = append(events, event)
	}

	return filterRange(events, window), nil
}

func (p *FeedProvider) Create(_ context.Context, _ calendar.Credential, event calendar.Event) (calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event = calendar.Normalize(event, p.now())
	p.added[event.ID] = event
	return event, nil
}

func (p *FeedProvider) Update(_ context.Context, _ calendar.Credential, id string, event calendar.Event) (calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, gone := p.deleted[id]; gone {
		return calendar.Event{}, &calendar.ProviderError{StatusCode: http.StatusNotFound, Message: "event deleted"}
	}
	event.ID = id
	event = calendar.Normalize(event, p.now())
	if _, ok := p.added[id]; ok {
		p.added[id] = event
	} else {
		p.updated[id] = event
	}
	return event, nil
}

func (p *FeedProvider) Delete(_ context.Context, _ calendar.Credential, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.added, id)
	delete(p.updated, id)
	p.deleted[id] = struct{}{}
	return nil
}

func (p *FeedProvider) refreshLocked(ctx context.Context) error {
	now := p.now()
	if p.feed != nil && now.Sub(p.fetchedAt) < p.ttl {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return fmt.Errorf("ics: build feed request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ics: fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &calendar.ProviderError{StatusCode: resp.StatusCode, Message: "feed fetch failed"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("ics: read feed: %w", err)
	}

	events, err := parseFeed(body, now)
	if err != nil {
		return err
	}

	p.feed = events
	p.fetchedAt = now
	return nil
}

func parseFeed(body []byte, reference time.Time) ([]calendar.Event, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse feed: %w", err)
	}

	events := make([]calendar.Event, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		uid := ""
		if prop := ve.GetProperty(ical.ComponentPropertyUniqueId); prop != nil {
			uid = prop.Value
		}
		if uid == "" {
			continue
		}
		title := ""
		if prop := ve.GetProperty(ical.ComponentPropertySummary); prop != nil {
			title = prop.Value
		}
		start, _ := ve.GetStartAt()
		end, _ := ve.GetEndAt()

		events = append(events, calendar.Normalize(calendar.Event{
			ID:    uid,
			Title: title,
			Start: start,
			End:   end,
		}, reference))
	}
	return events, nil
}

func filterRange(events []calendar.Event, window calendar.Range) []calendar.Event {
	if window.From.IsZero() && window.To.IsZero() {
		return events
	}
	filtered := make([]calendar.Event, 0, len(events))
	for _, event := range events {
		if !window.From.IsZero() && !event.End.After(window.From) {
			continue
		}
		if !window.To.IsZero() && !event.Start.Before(window.To) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}
