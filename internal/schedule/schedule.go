package schedule

import (
	"math"
	"time"
)

// Source records where an event was materialized from.
type Source string

const (
	// SourceCurrent marks events fetched from the calendar provider.
	SourceCurrent Source = "current"
	// SourceProposed marks events synthesized by a proposed change.
	SourceProposed Source = "proposed"
)

// ChangeType describes how an event differs from the provider's view.
type ChangeType string

const (
	ChangeTypeNone   ChangeType = "none"
	ChangeTypeAdd    ChangeType = "add"
	ChangeTypeMove   ChangeType = "move"
	ChangeTypeRemove ChangeType = "remove"
	ChangeTypeAdjust ChangeType = "adjust"
)

// Event represents a calendar event inside the lifecycle engine. Events are
// request-scoped: they are materialized from the provider or synthesized by a
// change and never persisted.
type Event struct {
	ID              string
	Title           string
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Source          Source
	ChangeType      ChangeType
}

// Acceptance tracks the review state of a single change.
type Acceptance string

const (
	AcceptancePending  Acceptance = "pending"
	AcceptanceAccepted Acceptance = "accepted"
	AcceptanceRejected Acceptance = "rejected"
)

// ChangeKind enumerates the atomic mutations a proposal may carry.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeMove   ChangeKind = "move"
	ChangeRemove ChangeKind = "remove"
	ChangeAdjust ChangeKind = "adjust"
)

// Change is one atomic proposed mutation to a single calendar event.
type Change struct {
	ID            string
	Kind          ChangeKind
	Event         Event
	TargetEventID string
	Rationale     string
	Accepted      Acceptance
}

// RequiresTarget reports whether the change kind must name an existing event.
func (k ChangeKind) RequiresTarget() bool {
	return k == ChangeMove || k == ChangeAdjust
}

// DurationMinutes computes the rounded minute span between start and end.
func DurationMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}
