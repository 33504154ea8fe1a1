package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/persistence/memory"
	"github.com/Axelpuff/schedassist/internal/proposal"
	"github.com/Axelpuff/schedassist/internal/schedule"
	"github.com/Axelpuff/schedassist/internal/testfixtures"
)

type syncHarness struct {
	service       *application.SyncService
	provider      *testfixtures.FakeCalendarProvider
	proposals     *memory.ProposalRepository
	conversations *memory.ConversationStore
	undo          *memory.UndoRepository
	slept         []time.Duration
}

func newSyncHarness(t *testing.T, events ...calendar.Event) *syncHarness {
	t.Helper()
	h := &syncHarness{
		provider:      testfixtures.NewFakeCalendarProvider(events...),
		proposals:     memory.NewProposalRepository(),
		conversations: memory.NewConversationStore(),
		undo:          memory.NewUndoRepository(),
	}
	h.service = application.NewSyncService(application.SyncServiceDeps{
		Provider:      h.provider,
		Proposals:     h.proposals,
		Conversations: h.conversations,
		Undo:          h.undo,
		IDGenerator:   testfixtures.NewIDGenerator("op").NextFunc(),
		Now:           testfixtures.NewClock(time.Time{}).NowFunc(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.slept = append(h.slept, d)
			return nil
		},
	})
	return h
}

func serverError() *calendar.ProviderError {
	return &calendar.ProviderError{StatusCode: 503, Message: "backend unavailable"}
}

func TestApplyChangesFullBatch(t *testing.T) {
	ctx := context.Background()
	existing := testfixtures.NewEventFixture(testfixtures.WithEventTitle("Standup"))
	doomed := testfixtures.NewEventFixture(testfixtures.WithEventTitle("Status Review"))
	h := newSyncHarness(t, existing.Calendar(), doomed.Calendar())

	moved := existing
	moved.Start = existing.Start.Add(2 * time.Hour)
	moved.End = existing.End.Add(2 * time.Hour)

	changes := []schedule.Change{
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-add")).Schedule(),
		testfixtures.NewChangeFixture(
			testfixtures.WithChangeID("c-move"),
			testfixtures.WithChangeKind(schedule.ChangeMove),
			testfixtures.WithChangeEvent(moved),
			testfixtures.WithChangeTarget(existing.ID),
		).Schedule(),
		testfixtures.NewChangeFixture(
			testfixtures.WithChangeID("c-remove"),
			testfixtures.WithChangeKind(schedule.ChangeRemove),
			testfixtures.WithChangeTarget(doomed.ID),
		).Schedule(),
	}

	stored := testfixtures.NewProposalFixture().Proposal()
	if err := h.proposals.SaveProposal(ctx, stored); err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	conversation := application.Conversation{ID: "session-1", State: application.StateProposalReady,
		Problem: application.ProblemStatement{Text: "busy", Status: application.ProblemOpen}}
	if err := h.conversations.SaveConversation(ctx, conversation); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		SessionID:  "session-1",
		ProposalID: stored.ID,
		Changes:    changes,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.Success || len(result.Failed) != 0 {
		t.Fatalf("expected clean batch, got %+v", result)
	}
	if len(result.AppliedChangeIDs) != 3 {
		t.Fatalf("expected 3 applied ids, got %v", result.AppliedChangeIDs)
	}

	if _, ok := h.provider.Event(doomed.ID); ok {
		t.Fatal("removed event still present")
	}
	updated, ok := h.provider.Event(existing.ID)
	if !ok || !updated.Start.Equal(moved.Start) {
		t.Fatalf("move not applied: %+v", updated)
	}

	record, err := h.undo.GetUndo(ctx, stored.ID)
	if err != nil {
		t.Fatalf("undo record not registered: %v", err)
	}
	if len(record.Operations) != 3 || !record.CanUndo {
		t.Fatalf("unexpected undo record %+v", record)
	}

	applied, _ := h.proposals.GetProposal(ctx, stored.ID)
	if applied.Status != proposal.StatusApplied {
		t.Fatalf("proposal status %s, want applied", applied.Status)
	}
	flipped, _ := h.conversations.GetConversation(ctx, "session-1")
	if flipped.State != application.StateApplied || flipped.Problem.Status != application.ProblemResolved {
		t.Fatalf("conversation not marked applied: %+v", flipped)
	}
}

func TestApplyChangesOnlyAccepted(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)

	changes := []schedule.Change{
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-yes"), testfixtures.WithChangeAccepted()).Schedule(),
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-no"), testfixtures.WithChangeRejected()).Schedule(),
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-maybe")).Schedule(),
	}

	result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID:   "proposal-x",
		Changes:      changes,
		OnlyAccepted: true,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.AppliedChangeIDs) != 1 || result.AppliedChangeIDs[0] != "c-yes" {
		t.Fatalf("expected only the accepted change, got %v", result.AppliedChangeIDs)
	}
}

func TestApplyChangesNoChanges(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)

	rejected := testfixtures.NewChangeFixture(testfixtures.WithChangeRejected()).Schedule()
	_, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID:   "proposal-x",
		Changes:      []schedule.Change{rejected},
		OnlyAccepted: true,
	})
	if !errors.Is(err, application.ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
}

func TestApplyChangesRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)
	h.provider.FailNext("create", serverError(), serverError())

	change := testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-1")).Schedule()
	result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID: "proposal-x",
		Changes:    []schedule.Change{change},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success after retries, got %+v", result)
	}
	if got := h.provider.CallCount("create"); got != 3 {
		t.Fatalf("expected 3 create attempts, got %d", got)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(h.slept) != len(want) || h.slept[0] != want[0] || h.slept[1] != want[1] {
		t.Fatalf("unexpected backoff %v, want %v", h.slept, want)
	}
}

func TestApplyChangesGivesUpAfterBoundedRetries(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)
	h.provider.FailNext("create", serverError(), serverError(), serverError(), serverError())

	change := testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-1")).Schedule()
	result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID: "proposal-x",
		Changes:    []schedule.Change{change},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed batch")
	}
	if got := h.provider.CallCount("create"); got != 4 {
		t.Fatalf("expected exactly 4 attempts, got %d", got)
	}
	if len(h.slept) != 3 || h.slept[2] != 8*time.Second {
		t.Fatalf("unexpected backoff %v", h.slept)
	}
	if len(result.Failed) != 1 || result.Failed[0].Code != application.CodeCalendarAPIError {
		t.Fatalf("unexpected failures %+v", result.Failed)
	}
	if _, err := h.undo.GetUndo(ctx, "proposal-x"); !errors.Is(err, application.ErrNotFound) {
		t.Fatal("failed batch must not register an undo record")
	}
}

func TestApplyChangesUnauthorizedStopsBatch(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)
	h.provider.FailNext("create", &calendar.ProviderError{StatusCode: 401, Message: "token revoked"})

	changes := []schedule.Change{
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-1")).Schedule(),
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-2")).Schedule(),
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-3")).Schedule(),
	}

	result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID: "proposal-x",
		Changes:    changes,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.CredentialRevoked || result.Success {
		t.Fatalf("expected revoked credential outcome, got %+v", result)
	}
	if len(result.AppliedChangeIDs) != 0 {
		t.Fatalf("nothing should have applied, got %v", result.AppliedChangeIDs)
	}
	if len(result.Failed) != 3 {
		t.Fatalf("all three changes must be reported failed, got %+v", result.Failed)
	}
	for _, failure := range result.Failed {
		if failure.Code != application.CodeCalendarUnauthorized {
			t.Fatalf("expected CALENDAR_UNAUTHORIZED, got %+v", failure)
		}
	}
	// One list snapshot plus the single 401 create; no calls for c-2/c-3.
	if got := h.provider.CallCount("create"); got != 1 {
		t.Fatalf("expected 1 create call, got %d", got)
	}
	if len(h.slept) != 0 {
		t.Fatalf("401 must never be retried, slept %v", h.slept)
	}
}

func TestApplyChangesUnauthorizedSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)
	h.provider.FailNext("list", &calendar.ProviderError{StatusCode: 401, Message: "token revoked"})

	change := testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-1")).Schedule()
	result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID: "proposal-x",
		Changes:    []schedule.Change{change},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.CredentialRevoked || len(result.Failed) != 1 {
		t.Fatalf("expected all changes failed before any mutation, got %+v", result)
	}
	if got := h.provider.CallCount("create"); got != 0 {
		t.Fatalf("no mutation calls expected, got %d creates", got)
	}
}

func TestApplyChangesPartialFailure(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)

	changes := []schedule.Change{
		testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-1")).Schedule(),
		testfixtures.NewChangeFixture(
			testfixtures.WithChangeID("c-2"),
			testfixtures.WithChangeKind(schedule.ChangeMove),
			testfixtures.WithChangeTarget("no-such-event"),
		).Schedule(),
	}

	result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID: "proposal-x",
		Changes:    changes,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Success {
		t.Fatal("expected partial failure")
	}
	if len(result.AppliedChangeIDs) != 1 || result.AppliedChangeIDs[0] != "c-1" {
		t.Fatalf("completed work must still be reported, got %v", result.AppliedChangeIDs)
	}
	if len(result.Failed) != 1 || result.Failed[0].ChangeID != "c-2" {
		t.Fatalf("unexpected failures %+v", result.Failed)
	}
	if len(h.slept) != 0 {
		t.Fatalf("404 must not be retried, slept %v", h.slept)
	}
}

func TestUndoRevertsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	existing := testfixtures.NewEventFixture(testfixtures.WithEventTitle("Standup"))
	h := newSyncHarness(t, existing.Calendar())

	moved := existing
	moved.Start = existing.Start.Add(3 * time.Hour)
	moved.End = existing.End.Add(3 * time.Hour)

	added := testfixtures.NewChangeFixture(testfixtures.WithChangeID("c-add")).Schedule()
	changes := []schedule.Change{
		added,
		testfixtures.NewChangeFixture(
			testfixtures.WithChangeID("c-move"),
			testfixtures.WithChangeKind(schedule.ChangeMove),
			testfixtures.WithChangeEvent(moved),
			testfixtures.WithChangeTarget(existing.ID),
		).Schedule(),
	}

	if result, err := h.service.ApplyChanges(ctx, "cred", application.ApplyParams{
		ProposalID: "proposal-x",
		Changes:    changes,
	}); err != nil || !result.Success {
		t.Fatalf("apply failed: %+v %v", result, err)
	}

	undone, err := h.service.Undo(ctx, "cred", "proposal-x")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !undone.Reverted {
		t.Fatalf("expected reverted, got %+v", undone)
	}

	if _, ok := h.provider.Event(added.Event.ID); ok {
		t.Fatal("added event should have been deleted by undo")
	}
	restored, ok := h.provider.Event(existing.ID)
	if !ok || !restored.Start.Equal(existing.Start) {
		t.Fatalf("moved event not restored: %+v", restored)
	}

	// A second undo for the same proposal is a no-op, not an error.
	again, err := h.service.Undo(ctx, "cred", "proposal-x")
	if err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if again.Reverted {
		t.Fatal("undo must be consumable exactly once")
	}
}

func TestUndoWithoutRecord(t *testing.T) {
	ctx := context.Background()
	h := newSyncHarness(t)

	result, err := h.service.Undo(ctx, "cred", "never-applied")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if result.Reverted {
		t.Fatal("expected reverted false for unknown proposal")
	}
}
