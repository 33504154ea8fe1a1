package application

import (
	"context"
	"time"

	"github.com/Axelpuff/schedassist/internal/proposal"
)

// ConversationStore keeps per-session conversation state for the process
// lifetime.
type ConversationStore interface {
	GetConversation(ctx context.Context, id string) (Conversation, error)
	SaveConversation(ctx context.Context, conversation Conversation) error
	DeleteConversation(ctx context.Context, id string) error
	CountConversations(ctx context.Context) (int, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ProposalRepository stores proposals by id. The in-memory implementation is
// the default; a SQLite-backed one can be injected for multi-run durability.
type ProposalRepository interface {
	SaveProposal(ctx context.Context, p proposal.Proposal) error
	GetProposal(ctx context.Context, id string) (proposal.Proposal, error)
	DeleteProposal(ctx context.Context, id string) error
}

// UndoRepository implements the single-level, exactly-once undo bookkeeping.
// Put overwrites any previous record for the same proposal id; Consume
// atomically flips CanUndo so a second call observes an unusable record.
type UndoRepository interface {
	PutUndo(ctx context.Context, record UndoRecord) error
	GetUndo(ctx context.Context, proposalID string) (UndoRecord, error)
	ConsumeUndo(ctx context.Context, proposalID string) (UndoRecord, bool, error)
	DeleteConsumedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
