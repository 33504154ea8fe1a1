package proposal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Axelpuff/schedassist/internal/schedule"
)

// ErrUnparseable is returned when the raw model output carries no decodable
// proposal object at all.
var ErrUnparseable = errors.New("proposal: model output is not a proposal")

// Cleaner normalizes untrusted model output into a canonical Proposal. It
// never rejects: structural enforcement is Validate's job.
type Cleaner struct {
	idGenerator func() string
	now         func() time.Time
}

// NewCleaner wires the identifier and clock dependencies used when the model
// omits them.
func NewCleaner(idGenerator func() string, now func() time.Time) *Cleaner {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Cleaner{idGenerator: idGenerator, now: now}
}

// rawProposal mirrors the JSON shape the model is prompted to produce, with
// every field optional and loosely typed.
type rawProposal struct {
	ID                 string             `json:"id"`
	Revision           int                `json:"revision"`
	Changes            []rawChange        `json:"changes"`
	Summary            string             `json:"summary"`
	SleepAssessment    rawSleepAssessment `json:"sleep_assessment"`
	Status             string             `json:"status"`
	CreatedAt          string             `json:"created_at"`
	PreviousProposalID string             `json:"previous_proposal_id"`
}

type rawChange struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Event         rawEvent `json:"event"`
	TargetEventID string   `json:"target_event_id"`
	Rationale     string   `json:"rationale"`
	Accepted      string   `json:"accepted"`
}

type rawEvent struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Start           string  `json:"start"`
	End             string  `json:"end"`
	DurationMinutes float64 `json:"duration_minutes"`
}

type rawSleepAssessment struct {
	EstimatedSleepHours float64 `json:"estimated_sleep_hours"`
	BelowTarget         bool    `json:"below_target"`
}

// Parse extracts the proposal object from raw model text. Markdown fences and
// surrounding prose are stripped before decoding.
func (c *Cleaner) Parse(raw string) (Proposal, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return Proposal{}, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}

	var decoded rawProposal
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return Proposal{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	return c.Clean(fromRaw(decoded)), nil
}

// Clean normalizes a decoded proposal: it synthesizes missing identifiers,
// strips wrapping quotes and fences from free text, forces every change back
// to pending, and defaults status and creation time to valid values. Clean is
// idempotent.
func (c *Cleaner) Clean(p Proposal) Proposal {
	out := p.Clone()

	if strings.TrimSpace(out.ID) == "" {
		out.ID = c.idGenerator()
	}
	if out.Revision < 1 {
		out.Revision = 1
	}
	out.Summary = stripWrapping(out.Summary)
	if !validStatus(out.Status) {
		out.Status = StatusPending
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = c.now()
	}

	for i := range out.Changes {
		change := &out.Changes[i]
		if strings.TrimSpace(change.ID) == "" {
			change.ID = c.idGenerator()
		}
		change.Rationale = stripWrapping(change.Rationale)
		// A model must never pre-accept its own suggestions.
		change.Accepted = schedule.AcceptancePending
		if change.Kind == schedule.ChangeRemove {
			continue
		}
		if strings.TrimSpace(change.Event.ID) == "" {
			change.Event.ID = c.idGenerator()
		}
		if change.Event.DurationMinutes == 0 && change.Event.End.After(change.Event.Start) {
			change.Event.DurationMinutes = schedule.DurationMinutes(change.Event.Start, change.Event.End)
		}
		change.Event.Source = schedule.SourceProposed
		change.Event.ChangeType = schedule.ChangeType(change.Kind)
	}

	return out
}

func fromRaw(decoded rawProposal) Proposal {
	changes := make([]schedule.Change, 0, len(decoded.Changes))
	for _, raw := range decoded.Changes {
		changes = append(changes, schedule.Change{
			ID:            strings.TrimSpace(raw.ID),
			Kind:          schedule.ChangeKind(strings.ToLower(strings.TrimSpace(raw.Type))),
			Event:         eventFromRaw(raw.Event),
			TargetEventID: strings.TrimSpace(raw.TargetEventID),
			Rationale:     raw.Rationale,
			Accepted:      schedule.Acceptance(strings.TrimSpace(raw.Accepted)),
		})
	}

	return Proposal{
		ID:       strings.TrimSpace(decoded.ID),
		Revision: decoded.Revision,
		Changes:  changes,
		Summary:  decoded.Summary,
		SleepAssessment: SleepAssessment{
			EstimatedSleepHours: decoded.SleepAssessment.EstimatedSleepHours,
			BelowTarget:         decoded.SleepAssessment.BelowTarget,
		},
		Status:             Status(strings.ToLower(strings.TrimSpace(decoded.Status))),
		CreatedAt:          parseTimestamp(decoded.CreatedAt),
		PreviousProposalID: strings.TrimSpace(decoded.PreviousProposalID),
	}
}

func eventFromRaw(raw rawEvent) schedule.Event {
	start := parseTimestamp(raw.Start)
	end := parseTimestamp(raw.End)
	return schedule.Event{
		ID:              strings.TrimSpace(raw.ID),
		Title:           stripWrapping(raw.Title),
		Start:           start,
		End:             end,
		DurationMinutes: int(raw.DurationMinutes),
		Source:          schedule.SourceProposed,
	}
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// extractJSONObject returns the outermost {...} span of the text, tolerating
// markdown code fences and conversational prose around it.
func extractJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if fenced, ok := strings.CutPrefix(trimmed, "```"); ok {
		if idx := strings.Index(fenced, "\n"); idx >= 0 {
			fenced = fenced[idx+1:]
		}
		if idx := strings.LastIndex(fenced, "```"); idx >= 0 {
			fenced = fenced[:idx]
		}
		trimmed = strings.TrimSpace(fenced)
	}

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first < 0 || last <= first {
		return ""
	}
	return trimmed[first : last+1]
}

// stripWrapping removes wrapping quotes and stray backticks that models
// commonly leave around free-text fields.
func stripWrapping(value string) string {
	trimmed := strings.TrimSpace(value)
	for {
		stripped := strings.TrimSpace(strings.Trim(trimmed, "`"))
		if len(stripped) >= 2 {
			if (stripped[0] == '"' && stripped[len(stripped)-1] == '"') ||
				(stripped[0] == '\'' && stripped[len(stripped)-1] == '\'') {
				stripped = strings.TrimSpace(stripped[1 : len(stripped)-1])
			}
		}
		if stripped == trimmed {
			return stripped
		}
		trimmed = stripped
	}
}
