package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/calendar"
)

type conversationService interface {
	Clarify(ctx context.Context, params application.ClarifyParams) (string, error)
	Next(ctx context.Context, cred calendar.Credential, params application.NextParams) (application.NextResult, error)
	Snapshot(ctx context.Context, sessionID string) (application.Conversation, error)
	Reset(ctx context.Context, sessionID string) error
}

// ConversationHandler serves the clarify/next conversation surface.
type ConversationHandler struct {
	service   conversationService
	responder responder
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service conversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{service: service, responder: newResponder(logger)}
}

type clarifyRequest struct {
	ProblemText       string     `json:"problem_text"`
	AnsweredQuestions []string   `json:"answered_questions"`
	CurrentEvents     []eventDTO `json:"current_events"`
}

type clarifyResponse struct {
	Question string `json:"question"`
}

// Clarify produces one clarifying question without touching stored state.
func (h *ConversationHandler) Clarify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req clarifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errBadRequestBody)
		return
	}

	events := make([]calendar.Event, 0, len(req.CurrentEvents))
	for _, event := range req.CurrentEvents {
		events = append(events, event.toCalendar())
	}

	question, err := h.service.Clarify(r.Context(), application.ClarifyParams{
		ProblemText:       req.ProblemText,
		AnsweredQuestions: req.AnsweredQuestions,
		CurrentEvents:     events,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, clarifyResponse{Question: question})
}

type nextRequest struct {
	SessionID      string                   `json:"session_id"`
	ProblemText    string                   `json:"problem_text"`
	Clarifications []string                 `json:"clarifications"`
	Preferences    *application.Preferences `json:"preferences"`
	ForceProposal  bool                     `json:"force_proposal"`
	Scope          string                   `json:"scope"`
}

type nextResponse struct {
	SessionID string       `json:"session_id"`
	Status    string       `json:"status"`
	Question  string       `json:"question,omitempty"`
	Proposal  *proposalDTO `json:"proposal,omitempty"`
}

// Next advances the conversation one turn.
func (h *ConversationHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req nextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errBadRequestBody)
		return
	}

	cred, _ := CredentialFromContext(r.Context())
	result, err := h.service.Next(r.Context(), cred, application.NextParams{
		SessionID:      req.SessionID,
		ProblemText:    req.ProblemText,
		Clarifications: req.Clarifications,
		Preferences:    req.Preferences,
		ForceProposal:  req.ForceProposal,
		Scope:          application.Scope(req.Scope),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := nextResponse{
		SessionID: result.SessionID,
		Status:    string(result.Status),
		Question:  result.Question,
	}
	if result.Proposal != nil {
		dto := proposalToDTO(*result.Proposal)
		response.Proposal = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

// Snapshot returns the stored conversation for a session.
func (h *ConversationHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ConversationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errInvalidConversation)
		return
	}

	conversation, err := h.service.Snapshot(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conversationToDTO(conversation))
}

// Reset discards the stored conversation for a session.
func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ConversationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errInvalidConversation)
		return
	}

	if err := h.service.Reset(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
