package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/proposal"
	"github.com/Axelpuff/schedassist/internal/schedule"
)

// retrySchedule is the fixed backoff between attempts for transient provider
// failures: first call plus three retries.
var retrySchedule = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// Failure codes surfaced per change in an apply batch.
const (
	CodeCalendarUnauthorized = "CALENDAR_UNAUTHORIZED"
	CodeCalendarAPIError     = "CALENDAR_API_ERROR"
	CodeNetworkError         = "NETWORK_ERROR"
)

// SyncService pushes accepted proposal changes to the calendar provider. The
// batch is best-effort: each change is attempted independently, transient
// failures are retried with backoff, and a revoked credential stops all
// remaining provider traffic immediately.
type SyncService struct {
	provider      calendar.Provider
	proposals     ProposalRepository
	conversations ConversationStore
	undo          UndoRepository
	idGenerator   func() string
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
	logger        *slog.Logger
}

// SyncServiceDeps wires the sync service collaborators. Sleep is injectable
// so tests can run the retry loop without waiting.
type SyncServiceDeps struct {
	Provider      calendar.Provider
	Proposals     ProposalRepository
	Conversations ConversationStore
	Undo          UndoRepository
	IDGenerator   func() string
	Now           func() time.Time
	Sleep         func(ctx context.Context, d time.Duration) error
	Logger        *slog.Logger
}

// NewSyncService constructs the apply/undo orchestrator.
func NewSyncService(deps SyncServiceDeps) *SyncService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "" }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &SyncService{
		provider:      deps.Provider,
		proposals:     deps.Proposals,
		conversations: deps.Conversations,
		undo:          deps.Undo,
		idGenerator:   idGen,
		now:           now,
		sleep:         sleep,
		logger:        defaultLogger(deps.Logger),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ApplyChanges pushes a proposal's changes to the provider one by one.
// AppliedChangeIDs lists every change whose provider call completed, even when
// the batch as a whole fails. A full-batch success registers an undo record
// and marks the proposal applied.
func (s *SyncService) ApplyChanges(ctx context.Context, cred calendar.Credential, params ApplyParams) (ApplyResult, error) {
	if s == nil || s.provider == nil || s.undo == nil {
		return ApplyResult{}, fmt.Errorf("sync service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "sync", "apply", "proposal_id", params.ProposalID)

	changes := params.Changes
	if params.OnlyAccepted {
		changes = acceptedOnly(changes)
	}
	if len(changes) == 0 {
		return ApplyResult{}, ErrNoChanges
	}

	// Snapshot the current schedule before mutating anything so move and
	// remove changes can be inverted later.
	snapshot, err := s.snapshotEvents(ctx, cred, changes)
	if err != nil {
		if calendar.IsUnauthorized(err) {
			return s.failAll(logger, changes, CodeCalendarUnauthorized, err), nil
		}
		return ApplyResult{}, err
	}

	result := ApplyResult{}
	undoOps := make([]UndoOperation, 0, len(changes))

	for _, change := range changes {
		op := SyncOperation{
			ID:           s.idGenerator(),
			ProposalID:   params.ProposalID,
			ChangeItemID: change.ID,
			Action:       actionFor(change.Kind),
			Status:       SyncPending,
		}

		if result.CredentialRevoked {
			// No further provider calls once the credential is known bad.
			op.Status = SyncFailed
			op.LastError = "credential revoked earlier in batch"
			result.Failed = append(result.Failed, ChangeFailure{
				ChangeID: change.ID,
				Code:     CodeCalendarUnauthorized,
				Message:  op.LastError,
			})
			continue
		}

		undoOp, ok, applyErr := s.applyOne(ctx, cred, &op, change, snapshot)
		if applyErr != nil {
			code := failureCode(applyErr)
			if code == CodeCalendarUnauthorized {
				result.CredentialRevoked = true
			}
			result.Failed = append(result.Failed, ChangeFailure{
				ChangeID: change.ID,
				Code:     code,
				Message:  applyErr.Error(),
			})
			logger.WarnContext(ctx, "change failed",
				"change_id", change.ID, "action", op.Action,
				"attempts", op.Attempts, "code", code)
			continue
		}

		result.AppliedChangeIDs = append(result.AppliedChangeIDs, change.ID)
		if ok {
			undoOps = append(undoOps, undoOp)
		}
	}

	result.Success = len(result.Failed) == 0
	if !result.Success {
		logger.WarnContext(ctx, "apply batch incomplete",
			"applied", len(result.AppliedChangeIDs), "failed", len(result.Failed),
			"credential_revoked", result.CredentialRevoked)
		return result, nil
	}

	if err := s.undo.PutUndo(ctx, UndoRecord{
		ProposalID: params.ProposalID,
		CanUndo:    true,
		Operations: undoOps,
		CreatedAt:  s.now(),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to register undo record", "error", err)
	}
	s.markApplied(ctx, logger, params)

	logger.InfoContext(ctx, "apply batch complete", "applied", len(result.AppliedChangeIDs))
	return result, nil
}

// applyOne runs one change through the provider with bounded retries. The
// returned UndoOperation inverts the change; ok is false when the prior event
// state was not in the snapshot.
func (s *SyncService) applyOne(ctx context.Context, cred calendar.Credential, op *SyncOperation, change schedule.Change, snapshot map[string]calendar.Event) (UndoOperation, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= len(retrySchedule); attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, retrySchedule[attempt-1]); err != nil {
				return UndoOperation{}, false, err
			}
		}
		op.Attempts++

		undoOp, ok, err := s.callProvider(ctx, cred, change, snapshot)
		if err == nil {
			op.Status = SyncSuccess
			op.LastError = ""
			return undoOp, ok, nil
		}
		lastErr = err
		op.LastError = err.Error()
		if calendar.IsUnauthorized(err) || !retryable(err) {
			break
		}
	}
	op.Status = SyncFailed
	return UndoOperation{}, false, lastErr
}

func (s *SyncService) callProvider(ctx context.Context, cred calendar.Credential, change schedule.Change, snapshot map[string]calendar.Event) (UndoOperation, bool, error) {
	switch change.Kind {
	case schedule.ChangeAdd:
		created, err := s.provider.Create(ctx, cred, fromScheduleEvent(change.Event))
		if err != nil {
			return UndoOperation{}, false, err
		}
		return UndoOperation{Action: SyncDelete, EventID: created.ID}, true, nil

	case schedule.ChangeMove, schedule.ChangeAdjust:
		target := change.TargetEventID
		prior, known := snapshot[target]
		if _, err := s.provider.Update(ctx, cred, target, fromScheduleEvent(change.Event)); err != nil {
			return UndoOperation{}, false, err
		}
		if !known {
			return UndoOperation{}, false, nil
		}
		return UndoOperation{Action: SyncUpdate, EventID: target, Event: prior}, true, nil

	case schedule.ChangeRemove:
		target := change.TargetEventID
		if target == "" {
			target = change.Event.ID
		}
		prior, known := snapshot[target]
		if err := s.provider.Delete(ctx, cred, target); err != nil {
			return UndoOperation{}, false, err
		}
		if !known {
			return UndoOperation{}, false, nil
		}
		return UndoOperation{Action: SyncCreate, Event: prior}, true, nil

	default:
		return UndoOperation{}, false, fmt.Errorf("unsupported change kind %q", change.Kind)
	}
}

// snapshotEvents lists the provider window covering every change so the prior
// state of updated and removed events is available for undo.
func (s *SyncService) snapshotEvents(ctx context.Context, cred calendar.Credential, changes []schedule.Change) (map[string]calendar.Event, error) {
	window := snapshotWindow(s.now(), changes)
	events, err := s.provider.List(ctx, cred, window)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[string]calendar.Event, len(events))
	for _, event := range events {
		snapshot[event.ID] = event
	}
	return snapshot, nil
}

func snapshotWindow(now time.Time, changes []schedule.Change) calendar.Range {
	window := calendar.Range{From: now.AddDate(0, 0, -7), To: now.AddDate(0, 0, 30)}
	for _, change := range changes {
		if change.Event.Start.IsZero() {
			continue
		}
		if start := change.Event.Start.AddDate(0, 0, -1); start.Before(window.From) {
			window.From = start
		}
		if end := change.Event.End.AddDate(0, 0, 1); end.After(window.To) {
			window.To = end
		}
	}
	return window
}

func (s *SyncService) failAll(logger *slog.Logger, changes []schedule.Change, code string, cause error) ApplyResult {
	result := ApplyResult{CredentialRevoked: code == CodeCalendarUnauthorized}
	for _, change := range changes {
		result.Failed = append(result.Failed, ChangeFailure{
			ChangeID: change.ID,
			Code:     code,
			Message:  cause.Error(),
		})
	}
	logger.Warn("apply batch rejected before any change", "code", code, "changes", len(changes))
	return result
}

// markApplied flips the proposal and, when a session is named, its
// conversation into the applied terminal state. Best effort: the calendar is
// already authoritative at this point.
func (s *SyncService) markApplied(ctx context.Context, logger *slog.Logger, params ApplyParams) {
	if s.proposals != nil {
		if stored, err := s.proposals.GetProposal(ctx, params.ProposalID); err == nil {
			stored.Status = proposal.StatusApplied
			if err := s.proposals.SaveProposal(ctx, stored); err != nil {
				logger.WarnContext(ctx, "failed to mark proposal applied", "error", err)
			}
		}
	}
	if s.conversations == nil || params.SessionID == "" {
		return
	}
	conversation, err := s.conversations.GetConversation(ctx, params.SessionID)
	if err != nil {
		return
	}
	conversation.State = StateApplied
	conversation.Problem.Status = ProblemResolved
	conversation.UpdatedAt = s.now()
	if err := s.conversations.SaveConversation(ctx, conversation); err != nil {
		logger.WarnContext(ctx, "failed to mark conversation applied", "error", err)
	}
}

// UndoResult reports one reversal attempt.
type UndoResult struct {
	Reverted bool            `json:"reverted"`
	Failed   []ChangeFailure `json:"failed,omitempty"`
}

// Undo reverses the most recent applied proposal exactly once. A missing or
// already-consumed record yields Reverted false with no error; the record is
// consumed before any provider call so a second request can never replay it.
func (s *SyncService) Undo(ctx context.Context, cred calendar.Credential, proposalID string) (UndoResult, error) {
	if s == nil || s.provider == nil || s.undo == nil {
		return UndoResult{}, fmt.Errorf("sync service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "sync", "undo", "proposal_id", proposalID)

	record, consumed, err := s.undo.ConsumeUndo(ctx, proposalID)
	if err != nil {
		return UndoResult{}, err
	}
	if !consumed {
		logger.InfoContext(ctx, "no undo available")
		return UndoResult{Reverted: false}, nil
	}

	result := UndoResult{Reverted: true}
	for _, op := range record.Operations {
		if err := s.revertOne(ctx, cred, op); err != nil {
			result.Reverted = false
			result.Failed = append(result.Failed, ChangeFailure{
				ChangeID: op.EventID,
				Code:     failureCode(err),
				Message:  err.Error(),
			})
			if calendar.IsUnauthorized(err) {
				break
			}
		}
	}

	logger.InfoContext(ctx, "undo complete",
		"operations", len(record.Operations), "reverted", result.Reverted)
	return result, nil
}

func (s *SyncService) revertOne(ctx context.Context, cred calendar.Credential, op UndoOperation) error {
	switch op.Action {
	case SyncCreate:
		_, err := s.provider.Create(ctx, cred, op.Event)
		return err
	case SyncUpdate:
		_, err := s.provider.Update(ctx, cred, op.EventID, op.Event)
		return err
	case SyncDelete:
		return s.provider.Delete(ctx, cred, op.EventID)
	default:
		return fmt.Errorf("unsupported undo action %q", op.Action)
	}
}

func acceptedOnly(changes []schedule.Change) []schedule.Change {
	accepted := make([]schedule.Change, 0, len(changes))
	for _, change := range changes {
		if change.Accepted == schedule.AcceptanceAccepted {
			accepted = append(accepted, change)
		}
	}
	return accepted
}

func actionFor(kind schedule.ChangeKind) SyncAction {
	switch kind {
	case schedule.ChangeAdd:
		return SyncCreate
	case schedule.ChangeRemove:
		return SyncDelete
	default:
		return SyncUpdate
	}
}

func fromScheduleEvent(event schedule.Event) calendar.Event {
	return calendar.Event{
		ID:              event.ID,
		Title:           event.Title,
		Start:           event.Start,
		End:             event.End,
		DurationMinutes: event.DurationMinutes,
	}
}

func retryable(err error) bool {
	if calendar.IsTransient(err) {
		return true
	}
	var perr *calendar.ProviderError
	if errors.As(err, &perr) {
		return false
	}
	// Transport-level failures (timeouts, resets) are worth retrying.
	return true
}

func failureCode(err error) string {
	if calendar.IsUnauthorized(err) {
		return CodeCalendarUnauthorized
	}
	var perr *calendar.ProviderError
	if errors.As(err, &perr) {
		return CodeCalendarAPIError
	}
	return CodeNetworkError
}
