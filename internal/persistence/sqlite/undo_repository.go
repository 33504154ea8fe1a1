package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Axelpuff/schedassist/internal/application"
)

// UndoRepository implements application.UndoRepository on SQLite. Consumption
// is a guarded UPDATE so concurrent undo requests for the same proposal can
// never both claim the record.
type UndoRepository struct {
	store *Store
}

// NewUndoRepository binds a repository to the shared store.
func NewUndoRepository(store *Store) *UndoRepository {
	return &UndoRepository{store: store}
}

// PutUndo registers the record, overwriting any previous record for the same
// proposal.
func (r *UndoRepository) PutUndo(ctx context.Context, record application.UndoRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sqlite: encode undo record: %w", err)
	}
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO undo_records (proposal_id, payload, consumed, consumed_at, created_at)
		VALUES (?, ?, 0, NULL, ?)
		ON CONFLICT(proposal_id) DO UPDATE SET
			payload = excluded.payload, consumed = 0, consumed_at = NULL, created_at = excluded.created_at`,
		record.ProposalID, string(payload), record.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: put undo record: %w", err)
	}
	return nil
}

// GetUndo returns the unconsumed record or application.ErrNotFound.
func (r *UndoRepository) GetUndo(ctx context.Context, proposalID string) (application.UndoRecord, error) {
	var payload string
	err := r.store.db.QueryRowContext(ctx,
		`SELECT payload FROM undo_records WHERE proposal_id = ? AND consumed = 0`, proposalID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return application.UndoRecord{}, application.ErrNotFound
	}
	if err != nil {
		return application.UndoRecord{}, fmt.Errorf("sqlite: get undo record: %w", err)
	}
	return decodeUndo(payload)
}

// ConsumeUndo atomically claims the record; later calls report ok false.
func (r *UndoRepository) ConsumeUndo(ctx context.Context, proposalID string) (application.UndoRecord, bool, error) {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return application.UndoRecord{}, false, fmt.Errorf("sqlite: begin consume: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE undo_records SET consumed = 1, consumed_at = ? WHERE proposal_id = ? AND consumed = 0`,
		r.store.now(), proposalID)
	if err != nil {
		return application.UndoRecord{}, false, fmt.Errorf("sqlite: consume undo record: %w", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return application.UndoRecord{}, false, fmt.Errorf("sqlite: consume undo record: %w", err)
	}
	if claimed == 0 {
		return application.UndoRecord{}, false, nil
	}

	var payload string
	if err := tx.QueryRowContext(ctx,
		`SELECT payload FROM undo_records WHERE proposal_id = ?`, proposalID).Scan(&payload); err != nil {
		return application.UndoRecord{}, false, fmt.Errorf("sqlite: read consumed record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return application.UndoRecord{}, false, fmt.Errorf("sqlite: commit consume: %w", err)
	}

	record, err := decodeUndo(payload)
	if err != nil {
		return application.UndoRecord{}, false, err
	}
	return record, true, nil
}

// DeleteConsumedBefore prunes records consumed before the cutoff.
func (r *UndoRepository) DeleteConsumedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.store.db.ExecContext(ctx,
		`DELETE FROM undo_records WHERE consumed = 1 AND consumed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune undo records: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune undo records: %w", err)
	}
	return int(removed), nil
}

func decodeUndo(payload string) (application.UndoRecord, error) {
	var record application.UndoRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return application.UndoRecord{}, fmt.Errorf("sqlite: decode undo record: %w", err)
	}
	return record, nil
}
