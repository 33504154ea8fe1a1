package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/proposal"
)

// ProposalRepository implements application.ProposalRepository on SQLite. The
// proposal is stored as a JSON payload; id, status, and created_at are lifted
// into columns for querying.
type ProposalRepository struct {
	store *Store
}

// NewProposalRepository binds a repository to the shared store.
func NewProposalRepository(store *Store) *ProposalRepository {
	return &ProposalRepository{store: store}
}

// SaveProposal inserts or replaces the proposal.
func (r *ProposalRepository) SaveProposal(ctx context.Context, p proposal.Proposal) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("sqlite: encode proposal: %w", err)
	}
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO proposals (id, payload, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, status = excluded.status`,
		p.ID, string(payload), string(p.Status), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: save proposal: %w", err)
	}
	return nil
}

// GetProposal returns the stored proposal or application.ErrNotFound.
func (r *ProposalRepository) GetProposal(ctx context.Context, id string) (proposal.Proposal, error) {
	var payload string
	err := r.store.db.QueryRowContext(ctx,
		`SELECT payload FROM proposals WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return proposal.Proposal{}, application.ErrNotFound
	}
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("sqlite: get proposal: %w", err)
	}
	var p proposal.Proposal
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return proposal.Proposal{}, fmt.Errorf("sqlite: decode proposal: %w", err)
	}
	return p, nil
}

// DeleteProposal removes the proposal; deleting an absent id is not an error.
func (r *ProposalRepository) DeleteProposal(ctx context.Context, id string) error {
	if _, err := r.store.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete proposal: %w", err)
	}
	return nil
}
