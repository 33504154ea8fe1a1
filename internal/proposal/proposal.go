package proposal

import (
	"time"

	"github.com/Axelpuff/schedassist/internal/schedule"
)

// Status tracks a proposal through its review lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusApplied   Status = "applied"
	StatusDiscarded Status = "discarded"
)

// MaxChanges bounds how many changes a single proposal may carry.
const MaxChanges = 5

// SleepAssessment estimates the rest impact of accepting a proposal.
type SleepAssessment struct {
	EstimatedSleepHours float64 `json:"estimated_sleep_hours"`
	BelowTarget         bool    `json:"below_target"`
}

// Proposal is a reviewable bundle of changes plus rationale and sleep impact.
// It is created only after a successful repair, validation, and conflict-gate
// pass, and transitions to applied only once the sync orchestrator reports
// full success.
type Proposal struct {
	ID                 string
	Revision           int
	Changes            []schedule.Change
	Summary            string
	SleepAssessment    SleepAssessment
	Status             Status
	CreatedAt          time.Time
	PreviousProposalID string
}

// Clone returns a deep copy, so stored proposals cannot be mutated through
// shared change slices.
func (p Proposal) Clone() Proposal {
	out := p
	out.Changes = make([]schedule.Change, len(p.Changes))
	copy(out.Changes, p.Changes)
	return out
}

func validStatus(status Status) bool {
	switch status {
	case StatusDraft, StatusPending, StatusApproved, StatusApplied, StatusDiscarded:
		return true
	}
	return false
}
