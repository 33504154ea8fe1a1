package http

import (
	"time"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/proposal"
	"github.com/Axelpuff/schedassist/internal/schedule"
)

type eventDTO struct {
	ID              string    `json:"id,omitempty"`
	Title           string    `json:"title"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

func (d eventDTO) toCalendar() calendar.Event {
	return calendar.Event{
		ID:              d.ID,
		Title:           d.Title,
		Start:           d.Start,
		End:             d.End,
		DurationMinutes: d.DurationMinutes,
	}
}

func (d eventDTO) toSchedule() schedule.Event {
	event := schedule.Event{
		ID:              d.ID,
		Title:           d.Title,
		Start:           d.Start,
		End:             d.End,
		DurationMinutes: d.DurationMinutes,
		Source:          schedule.SourceProposed,
	}
	if event.DurationMinutes == 0 && event.End.After(event.Start) {
		event.DurationMinutes = schedule.DurationMinutes(event.Start, event.End)
	}
	return event
}

func eventToDTO(event schedule.Event) eventDTO {
	return eventDTO{
		ID:              event.ID,
		Title:           event.Title,
		Start:           event.Start,
		End:             event.End,
		DurationMinutes: event.DurationMinutes,
	}
}

type changeDTO struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Event         eventDTO `json:"event"`
	TargetEventID string   `json:"target_event_id,omitempty"`
	Rationale     string   `json:"rationale,omitempty"`
	Accepted      string   `json:"accepted"`
}

func (d changeDTO) toSchedule() schedule.Change {
	accepted := schedule.Acceptance(d.Accepted)
	switch accepted {
	case schedule.AcceptanceAccepted, schedule.AcceptanceRejected:
	default:
		accepted = schedule.AcceptancePending
	}
	return schedule.Change{
		ID:            d.ID,
		Kind:          schedule.ChangeKind(d.Type),
		Event:         d.Event.toSchedule(),
		TargetEventID: d.TargetEventID,
		Rationale:     d.Rationale,
		Accepted:      accepted,
	}
}

func changeToDTO(change schedule.Change) changeDTO {
	return changeDTO{
		ID:            change.ID,
		Type:          string(change.Kind),
		Event:         eventToDTO(change.Event),
		TargetEventID: change.TargetEventID,
		Rationale:     change.Rationale,
		Accepted:      string(change.Accepted),
	}
}

type sleepAssessmentDTO struct {
	EstimatedSleepHours float64 `json:"estimated_sleep_hours"`
	BelowTarget         bool    `json:"below_target"`
}

type proposalDTO struct {
	ID                 string             `json:"id"`
	Revision           int                `json:"revision"`
	Changes            []changeDTO        `json:"changes"`
	Summary            string             `json:"summary"`
	SleepAssessment    sleepAssessmentDTO `json:"sleep_assessment"`
	Status             string             `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
	PreviousProposalID string             `json:"previous_proposal_id,omitempty"`
}

func proposalToDTO(p proposal.Proposal) proposalDTO {
	changes := make([]changeDTO, 0, len(p.Changes))
	for _, change := range p.Changes {
		changes = append(changes, changeToDTO(change))
	}
	return proposalDTO{
		ID:       p.ID,
		Revision: p.Revision,
		Changes:  changes,
		Summary:  p.Summary,
		SleepAssessment: sleepAssessmentDTO{
			EstimatedSleepHours: p.SleepAssessment.EstimatedSleepHours,
			BelowTarget:         p.SleepAssessment.BelowTarget,
		},
		Status:             string(p.Status),
		CreatedAt:          p.CreatedAt,
		PreviousProposalID: p.PreviousProposalID,
	}
}

type questionDTO struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Answered bool   `json:"answered"`
	Answer   string `json:"answer,omitempty"`
}

type conversationDTO struct {
	ID             string                   `json:"id"`
	State          string                   `json:"state"`
	ProblemText    string                   `json:"problem_text"`
	ProblemStatus  string                   `json:"problem_status"`
	Questions      []questionDTO            `json:"questions"`
	Preferences    *application.Preferences `json:"preferences,omitempty"`
	ProposalCount  int                      `json:"proposal_count"`
	LastProposalID string                   `json:"last_proposal_id,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func conversationToDTO(c application.Conversation) conversationDTO {
	questions := make([]questionDTO, 0, len(c.Questions))
	for _, question := range c.Questions {
		questions = append(questions, questionDTO{
			ID:       question.ID,
			Text:     question.Text,
			Answered: question.Answered,
			Answer:   question.Answer,
		})
	}
	preferences := c.Preferences
	return conversationDTO{
		ID:             c.ID,
		State:          string(c.State),
		ProblemText:    c.Problem.Text,
		ProblemStatus:  string(c.Problem.Status),
		Questions:      questions,
		Preferences:    &preferences,
		ProposalCount:  c.ProposalCount,
		LastProposalID: c.LastProposalID,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
