package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically prunes finished state: conversations whose problem was
// resolved and undo records that were already consumed. Both are bounded
// process memory, so pruning is housekeeping rather than correctness.
type Janitor struct {
	conversations ConversationStore
	undo          UndoRepository
	retention     time.Duration
	now           func() time.Time
	logger        *slog.Logger
	cron          *cron.Cron
}

// JanitorDeps wires the janitor's stores and schedule knobs.
type JanitorDeps struct {
	Conversations ConversationStore
	Undo          UndoRepository
	Retention     time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewJanitor constructs a stopped janitor; call Start to begin sweeping.
func NewJanitor(deps JanitorDeps) *Janitor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	retention := deps.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Janitor{
		conversations: deps.Conversations,
		undo:          deps.Undo,
		retention:     retention,
		now:           now,
		logger:        defaultLogger(deps.Logger),
	}
}

// Start schedules the sweep on the given cron spec (for example "@every 1h")
// and begins running it in the background.
func (j *Janitor) Start(spec string) error {
	if spec == "" {
		spec = "@every 1h"
	}
	runner := cron.New()
	if _, err := runner.AddFunc(spec, func() {
		j.Sweep(context.Background())
	}); err != nil {
		return err
	}
	runner.Start()
	j.cron = runner
	return nil
}

// Stop halts the background schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// Sweep prunes once and reports what it removed.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := j.now().Add(-j.retention)

	prunedConversations := 0
	if j.conversations != nil {
		removed, err := j.conversations.DeleteResolvedBefore(ctx, cutoff)
		if err != nil {
			j.logger.ErrorContext(ctx, "conversation sweep failed", "error", err)
		} else {
			prunedConversations = removed
		}
	}

	prunedUndo := 0
	if j.undo != nil {
		removed, err := j.undo.DeleteConsumedBefore(ctx, cutoff)
		if err != nil {
			j.logger.ErrorContext(ctx, "undo sweep failed", "error", err)
		} else {
			prunedUndo = removed
		}
	}

	if prunedConversations > 0 || prunedUndo > 0 {
		j.logger.InfoContext(ctx, "janitor sweep complete",
			"conversations", prunedConversations, "undo_records", prunedUndo)
	}
}
