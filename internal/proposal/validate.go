package proposal

import (
	"fmt"
	"strings"

	"github.com/Axelpuff/schedassist/internal/schedule"
)

// durationToleranceMinutes is the allowed drift between a declared duration
// and the one computed from the event window.
const durationToleranceMinutes = 1

// Issue records one violated field path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError enumerates every structural violation found in a cleaned
// proposal, not just the first. A nil result from Validate means the proposal
// is structurally sound.
type ValidationError struct {
	Issues []Issue
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "proposal validation failed"
	}
	paths := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		paths = append(paths, issue.Path)
	}
	return fmt.Sprintf("proposal validation failed: %s", strings.Join(paths, ", "))
}

func (e *ValidationError) add(path, message string) {
	e.Issues = append(e.Issues, Issue{Path: path, Message: message})
}

// placeholderSummaries are boilerplate strings models emit when they have
// nothing to say; they never describe a real proposal.
var placeholderSummaries = []string{
	"summary",
	"n/a",
	"none",
	"todo",
	"insert summary here",
	"your summary here",
	"a summary of the proposal",
}

// Validate enforces the structural invariants on a cleaned proposal. It
// returns nil when the proposal is valid and a *ValidationError listing every
// violated field path otherwise.
func Validate(p Proposal) *ValidationError {
	vErr := &ValidationError{}

	if len(p.Changes) == 0 {
		vErr.add("changes", "at least one change is required")
	}
	if len(p.Changes) > MaxChanges {
		vErr.add("changes", fmt.Sprintf("at most %d changes are allowed", MaxChanges))
	}

	seen := make(map[string]struct{}, len(p.Changes))
	for i, change := range p.Changes {
		path := fmt.Sprintf("changes[%d]", i)

		if change.ID == "" {
			vErr.add(path+".id", "change id is required")
		} else if _, dup := seen[change.ID]; dup {
			vErr.add(path+".id", fmt.Sprintf("duplicate change id %q", change.ID))
		}
		seen[change.ID] = struct{}{}

		switch change.Kind {
		case schedule.ChangeAdd, schedule.ChangeMove, schedule.ChangeRemove, schedule.ChangeAdjust:
		default:
			vErr.add(path+".type", fmt.Sprintf("unknown change type %q", change.Kind))
			continue
		}

		if change.Kind.RequiresTarget() && change.TargetEventID == "" {
			vErr.add(path+".target_event_id", string(change.Kind)+" requires a target event id")
		}

		if change.Kind == schedule.ChangeRemove {
			continue
		}
		validateChangeEvent(path+".event", change.Event, vErr)
	}

	hours := p.SleepAssessment.EstimatedSleepHours
	if hours < 0 || hours > 12 {
		vErr.add("sleep_assessment.estimated_sleep_hours", "must be between 0 and 12 hours")
	}

	summary := strings.TrimSpace(p.Summary)
	if len(summary) < 10 {
		vErr.add("summary", "summary is too short")
	} else if isPlaceholder(summary) {
		vErr.add("summary", "summary is placeholder text")
	}

	if len(vErr.Issues) == 0 {
		return nil
	}
	return vErr
}

func validateChangeEvent(path string, event schedule.Event, vErr *ValidationError) {
	if strings.TrimSpace(event.Title) == "" {
		vErr.add(path+".title", "title is required")
	}
	if event.Start.IsZero() {
		vErr.add(path+".start", "start is required")
	}
	if event.End.IsZero() {
		vErr.add(path+".end", "end is required")
	}
	if event.Start.IsZero() || event.End.IsZero() {
		return
	}
	if !event.Start.Before(event.End) {
		vErr.add(path+".start", "start must be before end")
		return
	}
	computed := schedule.DurationMinutes(event.Start, event.End)
	drift := event.DurationMinutes - computed
	if drift < -durationToleranceMinutes || drift > durationToleranceMinutes {
		vErr.add(path+".duration_minutes",
			fmt.Sprintf("declared duration %d does not match window of %d minutes", event.DurationMinutes, computed))
	}
}

func isPlaceholder(summary string) bool {
	lowered := strings.ToLower(summary)
	for _, placeholder := range placeholderSummaries {
		if lowered == placeholder {
			return true
		}
	}
	return false
}
