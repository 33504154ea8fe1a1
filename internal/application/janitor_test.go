package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/persistence/memory"
	"github.com/Axelpuff/schedassist/internal/testfixtures"
)

func TestJanitorSweep(t *testing.T) {
	ctx := context.Background()
	clock := testfixtures.NewClock(time.Time{})
	conversations := memory.NewConversationStore()
	undo := memory.NewUndoRepository()

	resolved := application.Conversation{
		ID:        "old-resolved",
		Problem:   application.ProblemStatement{Text: "done", Status: application.ProblemResolved},
		UpdatedAt: clock.Now().Add(-48 * time.Hour),
	}
	active := application.Conversation{
		ID:        "active",
		Problem:   application.ProblemStatement{Text: "ongoing", Status: application.ProblemOpen},
		UpdatedAt: clock.Now().Add(-48 * time.Hour),
	}
	for _, conversation := range []application.Conversation{resolved, active} {
		if err := conversations.SaveConversation(ctx, conversation); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	janitor := application.NewJanitor(application.JanitorDeps{
		Conversations: conversations,
		Undo:          undo,
		Retention:     24 * time.Hour,
		Now:           clock.NowFunc(),
	})
	janitor.Sweep(ctx)

	if _, err := conversations.GetConversation(ctx, "old-resolved"); !errors.Is(err, application.ErrNotFound) {
		t.Fatal("stale resolved conversation should be pruned")
	}
	if _, err := conversations.GetConversation(ctx, "active"); err != nil {
		t.Fatalf("open conversation must survive: %v", err)
	}
}
