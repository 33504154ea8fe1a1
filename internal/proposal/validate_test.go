package proposal

import (
	"strings"
	"testing"
	"time"

	"github.com/Axelpuff/schedassist/internal/schedule"
)

func validProposal() Proposal {
	start := time.Date(2025, time.October, 4, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	return Proposal{
		ID:       "prop-1",
		Revision: 1,
		Summary:  "Open a protected focus block on Saturday afternoon",
		Changes: []schedule.Change{
			{
				ID:   "c1",
				Kind: schedule.ChangeAdd,
				Event: schedule.Event{
					ID:              "ev1",
					Title:           "Focus Time",
					Start:           start,
					End:             end,
					DurationMinutes: 60,
				},
				Rationale: "Protects deep work",
				Accepted:  schedule.AcceptancePending,
			},
		},
		SleepAssessment: SleepAssessment{EstimatedSleepHours: 8},
		Status:          StatusPending,
		CreatedAt:       time.Date(2025, time.October, 4, 12, 0, 0, 0, time.UTC),
	}
}

func issuePaths(vErr *ValidationError) []string {
	if vErr == nil {
		return nil
	}
	paths := make([]string, 0, len(vErr.Issues))
	for _, issue := range vErr.Issues {
		paths = append(paths, issue.Path)
	}
	return paths
}

func hasIssue(vErr *ValidationError, path string) bool {
	for _, issue := range issuePaths(vErr) {
		if issue == path {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	t.Run("valid proposal passes", func(t *testing.T) {
		if vErr := Validate(validProposal()); vErr != nil {
			t.Fatalf("expected no error, got %v", vErr)
		}
	})

	t.Run("empty change list is rejected", func(t *testing.T) {
		p := validProposal()
		p.Changes = nil
		if vErr := Validate(p); !hasIssue(vErr, "changes") {
			t.Fatalf("expected changes issue, got %v", vErr)
		}
	})

	t.Run("more than five changes is rejected", func(t *testing.T) {
		p := validProposal()
		base := p.Changes[0]
		p.Changes = nil
		for i := 0; i < MaxChanges+1; i++ {
			change := base
			change.ID = "c" + strings.Repeat("x", i+1)
			p.Changes = append(p.Changes, change)
		}
		if vErr := Validate(p); !hasIssue(vErr, "changes") {
			t.Fatalf("expected changes issue, got %v", vErr)
		}
	})

	t.Run("duplicate change ids are rejected", func(t *testing.T) {
		p := validProposal()
		dup := p.Changes[0]
		p.Changes = append(p.Changes, dup)
		if vErr := Validate(p); !hasIssue(vErr, "changes[1].id") {
			t.Fatalf("expected duplicate id issue, got %v", vErr)
		}
	})

	t.Run("move without target is rejected", func(t *testing.T) {
		p := validProposal()
		p.Changes[0].Kind = schedule.ChangeMove
		p.Changes[0].TargetEventID = ""
		if vErr := Validate(p); !hasIssue(vErr, "changes[0].target_event_id") {
			t.Fatalf("expected target issue, got %v", vErr)
		}
	})

	t.Run("inverted event window is rejected", func(t *testing.T) {
		p := validProposal()
		p.Changes[0].Event.Start, p.Changes[0].Event.End = p.Changes[0].Event.End, p.Changes[0].Event.Start
		if vErr := Validate(p); !hasIssue(vErr, "changes[0].event.start") {
			t.Fatalf("expected start issue, got %v", vErr)
		}
	})

	t.Run("duration outside tolerance is rejected", func(t *testing.T) {
		p := validProposal()
		p.Changes[0].Event.DurationMinutes = 63
		if vErr := Validate(p); !hasIssue(vErr, "changes[0].event.duration_minutes") {
			t.Fatalf("expected duration issue, got %v", vErr)
		}
	})

	t.Run("duration within one minute tolerance passes", func(t *testing.T) {
		p := validProposal()
		p.Changes[0].Event.DurationMinutes = 61
		if vErr := Validate(p); vErr != nil {
			t.Fatalf("expected tolerance to allow 61, got %v", vErr)
		}
	})

	t.Run("sleep hours outside range are rejected", func(t *testing.T) {
		for _, hours := range []float64{-0.5, 12.5} {
			p := validProposal()
			p.SleepAssessment.EstimatedSleepHours = hours
			if vErr := Validate(p); !hasIssue(vErr, "sleep_assessment.estimated_sleep_hours") {
				t.Fatalf("expected sleep issue for %v hours, got %v", hours, vErr)
			}
		}
	})

	t.Run("placeholder and trivial summaries are rejected", func(t *testing.T) {
		p := validProposal()
		p.Summary = "ok"
		if vErr := Validate(p); !hasIssue(vErr, "summary") {
			t.Fatalf("expected summary issue, got %v", vErr)
		}

		p.Summary = "Insert Summary Here"
		if vErr := Validate(p); !hasIssue(vErr, "summary") {
			t.Fatalf("expected placeholder issue, got %v", vErr)
		}
	})

	t.Run("every violation is enumerated, not just the first", func(t *testing.T) {
		p := validProposal()
		p.Summary = "ok"
		p.SleepAssessment.EstimatedSleepHours = 20
		p.Changes[0].Kind = schedule.ChangeAdjust
		p.Changes[0].TargetEventID = ""

		vErr := Validate(p)
		if vErr == nil || len(vErr.Issues) < 3 {
			t.Fatalf("expected all violations reported, got %v", vErr)
		}
	})

	t.Run("remove change needs no event payload", func(t *testing.T) {
		p := validProposal()
		p.Changes = []schedule.Change{
			{ID: "c1", Kind: schedule.ChangeRemove, TargetEventID: "e1", Accepted: schedule.AcceptancePending},
		}
		if vErr := Validate(p); vErr != nil {
			t.Fatalf("expected remove without event to pass, got %v", vErr)
		}
	})
}

func TestAssessQuality(t *testing.T) {
	now := time.Date(2025, time.October, 4, 12, 0, 0, 0, time.UTC)

	t.Run("clean proposal scores full marks", func(t *testing.T) {
		report := AssessQuality(validProposal(), now)
		if report.Score != 100 || len(report.Warnings) != 0 {
			t.Fatalf("expected perfect score, got %+v", report)
		}
	})

	t.Run("warnings reduce the score without failing", func(t *testing.T) {
		p := validProposal()
		p.Changes[0].Event.Start = now.Add(-48 * time.Hour)
		p.Changes[0].Event.End = now.Add(-48*time.Hour + 2*time.Minute)
		p.SleepAssessment.EstimatedSleepHours = 1

		report := AssessQuality(p, now)
		if len(report.Warnings) != 3 {
			t.Fatalf("expected short, past-dated, and sleep warnings, got %v", report.Warnings)
		}
		if report.Score != 70 {
			t.Fatalf("expected score 70, got %d", report.Score)
		}
	})
}
