package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/proposal"
	"github.com/Axelpuff/schedassist/internal/schedule"
)

var (
	eventCounter    uint64
	changeCounter   uint64
	proposalCounter uint64
)

var referenceTime = time.Date(2025, time.October, 4, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic calendar event usable in both the
// provider wire shape and the schedule domain shape.
type EventFixture struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic one-hour event with optional
// overrides. Consecutive fixtures occupy consecutive hours.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := EventFixture{
		ID:    fmt.Sprintf("event-%03d", idx),
		Title: fmt.Sprintf("Event %03d", idx),
		Start: start,
		End:   start.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventStartEnd sets the start and end times.
func WithEventStartEnd(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// Calendar returns the fixture in the provider wire shape.
func (f EventFixture) Calendar() calendar.Event {
	return calendar.Event{
		ID:              f.ID,
		Title:           f.Title,
		Start:           f.Start,
		End:             f.End,
		DurationMinutes: schedule.DurationMinutes(f.Start, f.End),
	}
}

// Schedule returns the fixture as a current-schedule event.
func (f EventFixture) Schedule() schedule.Event {
	return calendar.ToScheduleEvent(f.Calendar())
}

// ----------------------------- Change fixtures ----------------------------

// ChangeFixture represents one deterministic proposal change.
type ChangeFixture struct {
	ID            string
	Kind          schedule.ChangeKind
	Event         EventFixture
	TargetEventID string
	Rationale     string
	Accepted      schedule.Acceptance
}

// ChangeOption configures the generated change fixture.
type ChangeOption func(*ChangeFixture)

// NewChangeFixture returns a deterministic add change with optional overrides.
func NewChangeFixture(opts ...ChangeOption) ChangeFixture {
	idx := atomic.AddUint64(&changeCounter, 1)
	fixture := ChangeFixture{
		ID:        fmt.Sprintf("change-%03d", idx),
		Kind:      schedule.ChangeAdd,
		Event:     NewEventFixture(),
		Rationale: fmt.Sprintf("Rationale %03d", idx),
		Accepted:  schedule.AcceptancePending,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithChangeID overrides the generated change ID.
func WithChangeID(id string) ChangeOption {
	return func(f *ChangeFixture) {
		f.ID = id
	}
}

// WithChangeKind sets the change kind.
func WithChangeKind(kind schedule.ChangeKind) ChangeOption {
	return func(f *ChangeFixture) {
		f.Kind = kind
	}
}

// WithChangeEvent sets the embedded event fixture.
func WithChangeEvent(event EventFixture) ChangeOption {
	return func(f *ChangeFixture) {
		f.Event = event
	}
}

// WithChangeTarget sets the target event ID for move/adjust/remove changes.
func WithChangeTarget(id string) ChangeOption {
	return func(f *ChangeFixture) {
		f.TargetEventID = id
	}
}

// WithChangeAccepted marks the change accepted.
func WithChangeAccepted() ChangeOption {
	return func(f *ChangeFixture) {
		f.Accepted = schedule.AcceptanceAccepted
	}
}

// WithChangeRejected marks the change rejected.
func WithChangeRejected() ChangeOption {
	return func(f *ChangeFixture) {
		f.Accepted = schedule.AcceptanceRejected
	}
}

// Schedule returns the fixture as a schedule.Change.
func (f ChangeFixture) Schedule() schedule.Change {
	event := f.Event.Schedule()
	event.Source = schedule.SourceProposed
	return schedule.Change{
		ID:            f.ID,
		Kind:          f.Kind,
		Event:         event,
		TargetEventID: f.TargetEventID,
		Rationale:     f.Rationale,
		Accepted:      f.Accepted,
	}
}

// ---------------------------- Proposal fixtures ---------------------------

// ProposalFixture represents a deterministic proposal record.
type ProposalFixture struct {
	ID         string
	Revision   int
	Changes    []ChangeFixture
	Summary    string
	SleepHours float64
	Status     proposal.Status
	CreatedAt  time.Time
}

// ProposalOption configures the generated proposal fixture.
type ProposalOption func(*ProposalFixture)

// NewProposalFixture returns a deterministic single-change proposal with
// optional overrides.
func NewProposalFixture(opts ...ProposalOption) ProposalFixture {
	idx := atomic.AddUint64(&proposalCounter, 1)
	fixture := ProposalFixture{
		ID:         fmt.Sprintf("proposal-%03d", idx),
		Revision:   1,
		Changes:    []ChangeFixture{NewChangeFixture()},
		Summary:    fmt.Sprintf("Rearrange the schedule, revision %03d of the plan", idx),
		SleepHours: 7.5,
		Status:     proposal.StatusPending,
		CreatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProposalID overrides the generated proposal ID.
func WithProposalID(id string) ProposalOption {
	return func(f *ProposalFixture) {
		f.ID = id
	}
}

// WithProposalRevision sets the revision number.
func WithProposalRevision(revision int) ProposalOption {
	return func(f *ProposalFixture) {
		f.Revision = revision
	}
}

// WithProposalChanges replaces the generated change set.
func WithProposalChanges(changes ...ChangeFixture) ProposalOption {
	return func(f *ProposalFixture) {
		f.Changes = append([]ChangeFixture(nil), changes...)
	}
}

// WithProposalSummary overrides the summary text.
func WithProposalSummary(summary string) ProposalOption {
	return func(f *ProposalFixture) {
		f.Summary = summary
	}
}

// WithProposalSleepHours sets the estimated sleep hours.
func WithProposalSleepHours(hours float64) ProposalOption {
	return func(f *ProposalFixture) {
		f.SleepHours = hours
	}
}

// WithProposalStatus sets the lifecycle status.
func WithProposalStatus(status proposal.Status) ProposalOption {
	return func(f *ProposalFixture) {
		f.Status = status
	}
}

// Proposal returns the fixture as a proposal.Proposal value.
func (f ProposalFixture) Proposal() proposal.Proposal {
	changes := make([]schedule.Change, 0, len(f.Changes))
	for _, change := range f.Changes {
		changes = append(changes, change.Schedule())
	}
	return proposal.Proposal{
		ID:       f.ID,
		Revision: f.Revision,
		Changes:  changes,
		Summary:  f.Summary,
		SleepAssessment: proposal.SleepAssessment{
			EstimatedSleepHours: f.SleepHours,
			BelowTarget:         f.SleepHours < schedule.RecommendedSleepHours,
		},
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
	}
}
