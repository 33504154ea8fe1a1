package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/genai"
	"github.com/Axelpuff/schedassist/internal/proposal"
	"github.com/Axelpuff/schedassist/internal/schedule"
)

// DefaultClarifyThreshold is how many recorded clarifications unlock a
// proposal. Fixed rather than adaptive.
const DefaultClarifyThreshold = 2

// ConversationService runs the clarify-or-propose state machine. A proposal
// is never surfaced while the tentative post-change schedule contains a time
// conflict; the conflict gate loops the conversation back to clarifying
// instead.
type ConversationService struct {
	conversations ConversationStore
	proposals     ProposalRepository
	provider      calendar.Provider
	generator     genai.Generator
	cleaner       *proposal.Cleaner
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
	defaults      Preferences
	threshold     int
}

// ConversationServiceDeps wires the collaborators and stores the service
// depends on.
type ConversationServiceDeps struct {
	Conversations    ConversationStore
	Proposals        ProposalRepository
	Provider         calendar.Provider
	Generator        genai.Generator
	IDGenerator      func() string
	Now              func() time.Time
	Logger           *slog.Logger
	Defaults         Preferences
	ClarifyThreshold int
}

// NewConversationService constructs the orchestrator.
func NewConversationService(deps ConversationServiceDeps) *ConversationService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "" }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	threshold := deps.ClarifyThreshold
	if threshold <= 0 {
		threshold = DefaultClarifyThreshold
	}
	defaults := deps.Defaults
	if defaults.SleepTargetHours <= 0 {
		defaults.SleepTargetHours = schedule.RecommendedSleepHours
	}
	if defaults.SleepStart == "" {
		defaults.SleepStart = schedule.DefaultSleepStart
	}
	if defaults.WakeUp == "" {
		defaults.WakeUp = schedule.DefaultWakeUp
	}
	return &ConversationService{
		conversations: deps.Conversations,
		proposals:     deps.Proposals,
		provider:      deps.Provider,
		generator:     deps.Generator,
		cleaner:       proposal.NewCleaner(idGen, now),
		idGenerator:   idGen,
		now:           now,
		logger:        defaultLogger(deps.Logger),
		defaults:      defaults,
		threshold:     threshold,
	}
}

// Clarify produces one clarifying question for the given problem without
// touching any stored conversation. The caller supplies the event context.
func (s *ConversationService) Clarify(ctx context.Context, params ClarifyParams) (string, error) {
	if s == nil || s.generator == nil {
		return "", fmt.Errorf("conversation service not configured")
	}

	if strings.TrimSpace(params.ProblemText) == "" {
		vErr := &ValidationError{}
		vErr.add("problem_text", "problem text is required")
		return "", vErr
	}

	events := calendar.ToScheduleEvents(params.CurrentEvents, s.now())
	prompt := buildClarifyPrompt(params.ProblemText, params.AnsweredQuestions, events)

	question, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(question), nil
}

// Next advances the conversation one turn: it either asks another clarifying
// question or emits a validated, conflict-free proposal.
func (s *ConversationService) Next(ctx context.Context, cred calendar.Credential, params NextParams) (NextResult, error) {
	if s == nil || s.conversations == nil || s.provider == nil || s.generator == nil {
		return NextResult{}, fmt.Errorf("conversation service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "conversation", "next", "session_id", params.SessionID)

	conversation, err := s.loadOrCreate(ctx, params)
	if err != nil {
		return NextResult{}, err
	}

	if conversation.Problem.Text == "" {
		conversation.Problem = ProblemStatement{
			Text:   strings.TrimSpace(params.ProblemText),
			Status: ProblemOpen,
		}
		conversation.State = StateClarifying
	}
	s.recordClarifications(&conversation, params.Clarifications)
	if params.Preferences != nil {
		conversation.Preferences = *params.Preferences
	}

	scope := params.Scope
	if scope == "" {
		scope = ScopeWeek
	}
	listed, err := s.provider.List(ctx, cred, scope.Window(s.now()))
	if err != nil {
		return NextResult{}, err
	}
	events := calendar.ToScheduleEvents(listed, s.now())

	if !params.ForceProposal && conversation.AnsweredCount() < s.threshold {
		return s.askClarifyingQuestion(ctx, logger, conversation, events)
	}
	return s.propose(ctx, logger, conversation, events)
}

func (s *ConversationService) loadOrCreate(ctx context.Context, params NextParams) (Conversation, error) {
	if params.SessionID != "" {
		conversation, err := s.conversations.GetConversation(ctx, params.SessionID)
		if err == nil {
			return conversation, nil
		}
		if err != ErrNotFound {
			return Conversation{}, err
		}
	}

	if strings.TrimSpace(params.ProblemText) == "" {
		vErr := &ValidationError{}
		vErr.add("problem_text", "problem text is required to start a conversation")
		return Conversation{}, vErr
	}

	id := params.SessionID
	if id == "" {
		id = s.idGenerator()
	}
	now := s.now()
	return Conversation{
		ID:          id,
		State:       StateAwaitingProblem,
		Preferences: s.defaults,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// recordClarifications logs user replies against unanswered questions in
// order. Replies beyond the outstanding questions are kept as free-form
// answered notes so they still count toward the clarify threshold.
func (s *ConversationService) recordClarifications(conversation *Conversation, answers []string) {
	for _, answer := range answers {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}
		assigned := false
		for i := range conversation.Questions {
			if !conversation.Questions[i].Answered {
				conversation.Questions[i].Answered = true
				conversation.Questions[i].Answer = answer
				assigned = true
				break
			}
		}
		if !assigned {
			conversation.Questions = append(conversation.Questions, ClarifyingQuestion{
				ID:       s.idGenerator(),
				Text:     "",
				Answered: true,
				Answer:   answer,
			})
		}
	}
}

func (s *ConversationService) askClarifyingQuestion(ctx context.Context, logger *slog.Logger, conversation Conversation, events []schedule.Event) (NextResult, error) {
	prompt := buildClarifyPrompt(conversation.Problem.Text, answeredTexts(conversation), events)
	question, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return NextResult{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	question = strings.TrimSpace(question)

	conversation.Questions = append(conversation.Questions, ClarifyingQuestion{
		ID:   s.idGenerator(),
		Text: question,
	})
	conversation.State = StateClarifying
	conversation.UpdatedAt = s.now()
	if err := s.conversations.SaveConversation(ctx, conversation); err != nil {
		return NextResult{}, err
	}

	logger.InfoContext(ctx, "clarifying question issued", "question_count", len(conversation.Questions))
	return NextResult{SessionID: conversation.ID, Status: NextClarify, Question: question}, nil
}

func (s *ConversationService) propose(ctx context.Context, logger *slog.Logger, conversation Conversation, events []schedule.Event) (NextResult, error) {
	prompt := buildProposalPrompt(conversation, events)
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return NextResult{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	cleaned, err := s.cleaner.Parse(raw)
	if err != nil {
		return NextResult{}, &ProposalInvalidError{Issues: []proposal.Issue{
			{Path: "proposal", Message: err.Error()},
		}}
	}
	if vErr := proposal.Validate(cleaned); vErr != nil {
		return NextResult{}, &ProposalInvalidError{Issues: vErr.Issues}
	}

	quality := proposal.AssessQuality(cleaned, s.now())
	if len(quality.Warnings) > 0 {
		logger.WarnContext(ctx, "proposal quality findings", "score", quality.Score, "warnings", quality.Warnings)
	}

	// Conflict gate: evaluate the tentative post-change schedule with every
	// change treated as accepted. A double-booking here turns the turn back
	// into a clarifying question.
	preview := schedule.PreviewChanges(events, cleaned.Changes)
	if conflicts := schedule.FindTimeConflicts(preview); len(conflicts) > 0 {
		return s.deflectConflict(ctx, logger, conversation, conflicts[0])
	}

	conversation.ProposalCount++
	cleaned.Revision = conversation.ProposalCount
	cleaned.PreviousProposalID = conversation.LastProposalID
	cleaned.Status = proposal.StatusPending
	if conversation.Problem.Status == "" {
		conversation.Problem.Status = ProblemOpen
	}

	if err := s.proposals.SaveProposal(ctx, cleaned); err != nil {
		return NextResult{}, err
	}

	conversation.LastProposalID = cleaned.ID
	conversation.State = StateProposalReady
	conversation.UpdatedAt = s.now()
	if err := s.conversations.SaveConversation(ctx, conversation); err != nil {
		return NextResult{}, err
	}

	logger.InfoContext(ctx, "proposal ready",
		"proposal_id", cleaned.ID, "revision", cleaned.Revision,
		"changes", len(cleaned.Changes), "quality_score", quality.Score)
	return NextResult{SessionID: conversation.ID, Status: NextProposal, Proposal: &cleaned}, nil
}

func (s *ConversationService) deflectConflict(ctx context.Context, logger *slog.Logger, conversation Conversation, conflict schedule.Conflict) (NextResult, error) {
	question := conflictQuestion(conflict)

	conversation.Questions = append(conversation.Questions, ClarifyingQuestion{
		ID:   s.idGenerator(),
		Text: question,
	})
	conversation.State = StateClarifying
	conversation.UpdatedAt = s.now()
	if err := s.conversations.SaveConversation(ctx, conversation); err != nil {
		return NextResult{}, err
	}

	logger.InfoContext(ctx, "proposal blocked by conflict gate",
		"event1", conflict.Event1.Title, "event2", conflict.Event2.Title,
		"overlap_minutes", conflict.OverlapMinutes)
	return NextResult{SessionID: conversation.ID, Status: NextClarify, Question: question}, nil
}

// conflictQuestion names both conflicting events, their time ranges, and the
// overlap duration, so the user can decide which one should move.
func conflictQuestion(conflict schedule.Conflict) string {
	return fmt.Sprintf(
		"The proposed schedule would overlap %q (%s to %s) with %q (%s to %s) for %d minutes. Which of the two should move?",
		conflict.Event1.Title,
		conflict.Event1.Start.Format(time.RFC3339), conflict.Event1.End.Format(time.RFC3339),
		conflict.Event2.Title,
		conflict.Event2.Start.Format(time.RFC3339), conflict.Event2.End.Format(time.RFC3339),
		conflict.OverlapMinutes,
	)
}

func answeredTexts(conversation Conversation) []string {
	answers := make([]string, 0, len(conversation.Questions))
	for _, question := range conversation.Questions {
		if question.Answered {
			answers = append(answers, question.Answer)
		}
	}
	return answers
}

// Snapshot returns the stored conversation bookkeeping for a session.
func (s *ConversationService) Snapshot(ctx context.Context, sessionID string) (Conversation, error) {
	if s == nil || s.conversations == nil {
		return Conversation{}, fmt.Errorf("conversation service not configured")
	}
	return s.conversations.GetConversation(ctx, sessionID)
}

// Reset discards a session's conversation state.
func (s *ConversationService) Reset(ctx context.Context, sessionID string) error {
	if s == nil || s.conversations == nil {
		return fmt.Errorf("conversation service not configured")
	}
	return s.conversations.DeleteConversation(ctx, sessionID)
}

// ActiveConversations reports how many sessions currently hold state.
func (s *ConversationService) ActiveConversations(ctx context.Context) int {
	if s == nil || s.conversations == nil {
		return 0
	}
	count, err := s.conversations.CountConversations(ctx)
	if err != nil {
		return 0
	}
	return count
}
