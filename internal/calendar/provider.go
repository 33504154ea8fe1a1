// Package calendar defines the narrow capability surface through which the
// lifecycle engine talks to an external calendar provider. The provider is
// authoritative for event state; the engine never persists events itself.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Axelpuff/schedassist/internal/schedule"
)

// Credential is the opaque handle the engine receives from the session
// boundary. The engine forwards it untouched and never inspects it.
type Credential string

// Range bounds a List query.
type Range struct {
	From time.Time
	To   time.Time
}

// Event is the provider wire shape.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Provider is the calendar collaborator capability set.
type Provider interface {
	List(ctx context.Context, cred Credential, window Range) ([]Event, error)
	Create(ctx context.Context, cred Credential, event Event) (Event, error)
	Update(ctx context.Context, cred Credential, id string, event Event) (Event, error)
	Delete(ctx context.Context, cred Credential, id string) error
}

// ProviderError reports a failed provider call together with the HTTP status
// the provider answered with, which drives the retry policy.
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e == nil {
		return "calendar: provider error"
	}
	return fmt.Sprintf("calendar: provider returned %d: %s", e.StatusCode, e.Message)
}

// Unauthorized reports a revoked or rejected credential. Never retried.
func (e *ProviderError) Unauthorized() bool {
	return e != nil && e.StatusCode == http.StatusUnauthorized
}

// Transient reports a failure worth retrying with backoff.
func (e *ProviderError) Transient() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsUnauthorized reports whether err carries a 401 from the provider.
func IsUnauthorized(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Unauthorized()
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Transient()
}

// Normalize repairs malformed provider events. All-day or broken events that
// lack a usable start/end pair become a 1-minute placeholder window instead of
// propagating as invalid, and the declared duration is recomputed from the
// window.
func Normalize(event Event, reference time.Time) Event {
	if event.Start.IsZero() && !event.End.IsZero() {
		event.Start = event.End.Add(-time.Minute)
	}
	if event.Start.IsZero() {
		event.Start = reference
	}
	if !event.End.After(event.Start) {
		event.End = event.Start.Add(time.Minute)
	}
	event.DurationMinutes = schedule.DurationMinutes(event.Start, event.End)
	return event
}

// ToScheduleEvent maps a normalized provider event into the engine's view of
// the current schedule.
func ToScheduleEvent(event Event) schedule.Event {
	return schedule.Event{
		ID:              event.ID,
		Title:           event.Title,
		Start:           event.Start,
		End:             event.End,
		DurationMinutes: event.DurationMinutes,
		Source:          schedule.SourceCurrent,
		ChangeType:      schedule.ChangeTypeNone,
	}
}

// ToScheduleEvents normalizes and maps a provider listing in one pass.
func ToScheduleEvents(events []Event, reference time.Time) []schedule.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]schedule.Event, 0, len(events))
	for _, event := range events {
		out = append(out, ToScheduleEvent(Normalize(event, reference)))
	}
	return out
}
