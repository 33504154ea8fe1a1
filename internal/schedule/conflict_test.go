package schedule

import (
	"testing"
	"time"
)

func newEvent(id, title string, start, end time.Time) Event {
	return Event{
		ID:              id,
		Title:           title,
		Start:           start,
		End:             end,
		DurationMinutes: DurationMinutes(start, end),
		Source:          SourceCurrent,
		ChangeType:      ChangeTypeNone,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.October, 4, hour, minute, 0, 0, time.UTC)
}

func TestFindTimeConflicts(t *testing.T) {
	t.Run("overlapping pair reported once with positive minutes", func(t *testing.T) {
		events := []Event{
			newEvent("e1", "Call Delia", at(6, 0), at(7, 0)),
			newEvent("e2", "Team Sync", at(6, 30), at(7, 30)),
		}

		conflicts := FindTimeConflicts(events)
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d", len(conflicts))
		}
		conflict := conflicts[0]
		if conflict.Event1.ID != "e1" || conflict.Event2.ID != "e2" {
			t.Fatalf("expected pair ordered by original index, got %q/%q", conflict.Event1.ID, conflict.Event2.ID)
		}
		if conflict.OverlapMinutes != 30 {
			t.Fatalf("expected 30 overlap minutes, got %d", conflict.OverlapMinutes)
		}
	})

	t.Run("shared boundary instant is not a conflict", func(t *testing.T) {
		events := []Event{
			newEvent("e1", "Standup", at(9, 0), at(9, 30)),
			newEvent("e2", "Review", at(9, 30), at(10, 0)),
		}

		if conflicts := FindTimeConflicts(events); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %d", len(conflicts))
		}
	})

	t.Run("containment conflicts with contained duration", func(t *testing.T) {
		events := []Event{
			newEvent("e1", "Workshop", at(13, 0), at(17, 0)),
			newEvent("e2", "Break", at(14, 0), at(14, 30)),
		}

		conflicts := FindTimeConflicts(events)
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d", len(conflicts))
		}
		if conflicts[0].OverlapMinutes != 30 {
			t.Fatalf("expected 30 overlap minutes, got %d", conflicts[0].OverlapMinutes)
		}
	})

	t.Run("three mutually overlapping events yield three pairs", func(t *testing.T) {
		events := []Event{
			newEvent("e1", "A", at(9, 0), at(11, 0)),
			newEvent("e2", "B", at(10, 0), at(12, 0)),
			newEvent("e3", "C", at(10, 30), at(11, 30)),
		}

		if conflicts := FindTimeConflicts(events); len(conflicts) != 3 {
			t.Fatalf("expected 3 conflicts, got %d", len(conflicts))
		}
	})

	t.Run("empty and single-event inputs are conflict free", func(t *testing.T) {
		if conflicts := FindTimeConflicts(nil); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts for empty input, got %d", len(conflicts))
		}
		events := []Event{newEvent("e1", "Solo", at(9, 0), at(10, 0))}
		if conflicts := FindTimeConflicts(events); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts for single event, got %d", len(conflicts))
		}
	})
}
