// Package memory provides the default in-process stores. Conversations,
// proposals, and undo records are all bounded, process-lifetime state; the
// calendar provider remains the source of truth for events.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/proposal"
)

// ConversationStore keeps conversations in a mutex-guarded map.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]application.Conversation
}

// NewConversationStore constructs an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[string]application.Conversation)}
}

// GetConversation returns the stored conversation or application.ErrNotFound.
func (s *ConversationStore) GetConversation(ctx context.Context, id string) (application.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conversation, ok := s.conversations[id]
	if !ok {
		return application.Conversation{}, application.ErrNotFound
	}
	return cloneConversation(conversation), nil
}

// SaveConversation inserts or replaces the conversation.
func (s *ConversationStore) SaveConversation(ctx context.Context, conversation application.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversation.ID] = cloneConversation(conversation)
	return nil
}

// DeleteConversation removes the conversation; deleting an absent id is not an
// error.
func (s *ConversationStore) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

// CountConversations reports how many conversations are held.
func (s *ConversationStore) CountConversations(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations), nil
}

// DeleteResolvedBefore prunes conversations whose problem is resolved and
// whose last update predates the cutoff. Returns how many were removed.
func (s *ConversationStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, conversation := range s.conversations {
		if conversation.Problem.Status == application.ProblemResolved && conversation.UpdatedAt.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed, nil
}

func cloneConversation(c application.Conversation) application.Conversation {
	c.Questions = append([]application.ClarifyingQuestion(nil), c.Questions...)
	c.Preferences.Priorities = append([]string(nil), c.Preferences.Priorities...)
	c.Preferences.ProtectedWindows = append([]string(nil), c.Preferences.ProtectedWindows...)
	return c
}

// ProposalRepository keeps proposals in a mutex-guarded map.
type ProposalRepository struct {
	mu        sync.RWMutex
	proposals map[string]proposal.Proposal
}

// NewProposalRepository constructs an empty repository.
func NewProposalRepository() *ProposalRepository {
	return &ProposalRepository{proposals: make(map[string]proposal.Proposal)}
}

// SaveProposal inserts or replaces the proposal.
func (r *ProposalRepository) SaveProposal(ctx context.Context, p proposal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposals[p.ID] = p.Clone()
	return nil
}

// GetProposal returns the stored proposal or application.ErrNotFound.
func (r *ProposalRepository) GetProposal(ctx context.Context, id string) (proposal.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.proposals[id]
	if !ok {
		return proposal.Proposal{}, application.ErrNotFound
	}
	return stored.Clone(), nil
}

// DeleteProposal removes the proposal; deleting an absent id is not an error.
func (r *ProposalRepository) DeleteProposal(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.proposals, id)
	return nil
}

type undoEntry struct {
	record     application.UndoRecord
	consumed   bool
	consumedAt time.Time
}

// UndoRepository keeps one undo record per proposal and guarantees each is
// consumed at most once.
type UndoRepository struct {
	mu      sync.Mutex
	entries map[string]*undoEntry
	now     func() time.Time
}

// NewUndoRepository constructs an empty repository.
func NewUndoRepository() *UndoRepository {
	return &UndoRepository{entries: make(map[string]*undoEntry), now: time.Now}
}

// PutUndo registers the record, overwriting any previous record for the same
// proposal.
func (r *UndoRepository) PutUndo(ctx context.Context, record application.UndoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.Operations = append([]application.UndoOperation(nil), record.Operations...)
	r.entries[record.ProposalID] = &undoEntry{record: record}
	return nil
}

// GetUndo returns the record without consuming it, or application.ErrNotFound.
func (r *UndoRepository) GetUndo(ctx context.Context, proposalID string) (application.UndoRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[proposalID]
	if !ok || entry.consumed {
		return application.UndoRecord{}, application.ErrNotFound
	}
	record := entry.record
	record.Operations = append([]application.UndoOperation(nil), record.Operations...)
	return record, nil
}

// ConsumeUndo atomically claims the record. The second and later calls for
// the same proposal report ok false.
func (r *UndoRepository) ConsumeUndo(ctx context.Context, proposalID string) (application.UndoRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[proposalID]
	if !ok || entry.consumed || !entry.record.CanUndo {
		return application.UndoRecord{}, false, nil
	}
	entry.consumed = true
	entry.consumedAt = r.now()
	record := entry.record
	record.Operations = append([]application.UndoOperation(nil), record.Operations...)
	return record, true, nil
}

// DeleteConsumedBefore prunes records consumed before the cutoff. Returns how
// many were removed.
func (r *UndoRepository) DeleteConsumedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, entry := range r.entries {
		if entry.consumed && entry.consumedAt.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed, nil
}
