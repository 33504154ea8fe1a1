package application

import (
	"time"

	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/proposal"
	"github.com/Axelpuff/schedassist/internal/schedule"
)

// State tracks a conversation through the proposal lifecycle.
type State string

const (
	StateAwaitingProblem State = "awaiting_problem"
	StateClarifying      State = "clarifying"
	StateProposalReady   State = "proposal_ready"
	StateApplied         State = "applied"
	StateDiscarded       State = "discarded"
)

// ProblemStatus tracks whether the user's scheduling complaint has been
// settled by an applied or discarded proposal.
type ProblemStatus string

const (
	ProblemOpen     ProblemStatus = "open"
	ProblemResolved ProblemStatus = "resolved"
)

// ProblemStatement is the user's original scheduling complaint.
type ProblemStatement struct {
	Text   string
	Status ProblemStatus
}

// ClarifyingQuestion is one question asked of the user; Answered flips once a
// reply is logged.
type ClarifyingQuestion struct {
	ID       string
	Text     string
	Answered bool
	Answer   string
}

// Preferences carries the user's scheduling priorities. Values default from
// configuration and may be overridden per request.
type Preferences struct {
	SleepTargetHours float64  `yaml:"sleep_target_hours" json:"sleep_target_hours"`
	SleepStart       string   `yaml:"sleep_start" json:"sleep_start"`
	WakeUp           string   `yaml:"wake_up" json:"wake_up"`
	Priorities       []string `yaml:"priorities" json:"priorities"`
	ProtectedWindows []string `yaml:"protected_windows" json:"protected_windows"`
}

// Conversation is the per-session bookkeeping for one scheduling problem.
// Conversations live for the process lifetime only.
type Conversation struct {
	ID             string
	State          State
	Problem        ProblemStatement
	Questions      []ClarifyingQuestion
	Preferences    Preferences
	ProposalCount  int
	LastProposalID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AnsweredCount reports how many clarifying answers have been recorded.
func (c Conversation) AnsweredCount() int {
	count := 0
	for _, question := range c.Questions {
		if question.Answered {
			count++
		}
	}
	return count
}

// Scope names the calendar window a request operates over.
type Scope string

const (
	ScopeDay  Scope = "day"
	ScopeWeek Scope = "week"
)

// Window resolves the scope into a concrete provider range anchored at now.
func (s Scope) Window(now time.Time) calendar.Range {
	switch s {
	case ScopeDay:
		return calendar.Range{From: now, To: now.AddDate(0, 0, 1)}
	default:
		return calendar.Range{From: now, To: now.AddDate(0, 0, 7)}
	}
}

// ClarifyParams carries the stateless clarify operation's input.
type ClarifyParams struct {
	ProblemText       string
	AnsweredQuestions []string
	CurrentEvents     []calendar.Event
}

// NextParams drives one turn of the conversation state machine.
type NextParams struct {
	SessionID      string
	ProblemText    string
	Clarifications []string
	Preferences    *Preferences
	ForceProposal  bool
	Scope          Scope
}

// NextStatus tags the two possible outcomes of a Next turn.
type NextStatus string

const (
	NextClarify  NextStatus = "clarify"
	NextProposal NextStatus = "proposal"
)

// NextResult is either a clarifying question or a validated proposal, never
// both.
type NextResult struct {
	SessionID string
	Status    NextStatus
	Question  string
	Proposal  *proposal.Proposal
}

// SyncAction maps a change kind onto the provider operation it requires.
type SyncAction string

const (
	SyncCreate SyncAction = "create"
	SyncUpdate SyncAction = "update"
	SyncDelete SyncAction = "delete"
)

// SyncStatus tracks a sync operation through its retry loop.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// SyncOperation is the transient per-change bookkeeping created at apply
// time. The calendar provider stays authoritative; operations are discarded
// once the batch completes.
type SyncOperation struct {
	ID           string
	ProposalID   string
	ChangeItemID string
	Action       SyncAction
	Status       SyncStatus
	Attempts     int
	LastError    string
}

// ApplyParams carries one apply batch. SessionID is optional; when present
// the owning conversation is marked applied once the whole batch succeeds.
type ApplyParams struct {
	SessionID    string
	ProposalID   string
	Changes      []schedule.Change
	OnlyAccepted bool
}

// ChangeFailure reports one change that could not be applied.
type ChangeFailure struct {
	ChangeID string `json:"change_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// ApplyResult aggregates a best-effort batch outcome. AppliedChangeIDs lists
// every change whose provider call completed, regardless of other failures.
type ApplyResult struct {
	Success           bool
	AppliedChangeIDs  []string
	Failed            []ChangeFailure
	CredentialRevoked bool
}

// UndoOperation is one inverse provider call recorded at apply time.
type UndoOperation struct {
	Action  SyncAction     `json:"action"`
	EventID string         `json:"event_id"`
	Event   calendar.Event `json:"event"`
}

// UndoRecord permits exactly one reversal of an applied proposal. Registering
// a new record for the same proposal id overwrites the previous one.
type UndoRecord struct {
	ProposalID string          `json:"proposal_id"`
	CanUndo    bool            `json:"can_undo"`
	Operations []UndoOperation `json:"operations"`
	CreatedAt  time.Time       `json:"created_at"`
}
