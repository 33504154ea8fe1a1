package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/schedule"
)

type syncService interface {
	ApplyChanges(ctx context.Context, cred calendar.Credential, params application.ApplyParams) (application.ApplyResult, error)
	Undo(ctx context.Context, cred calendar.Credential, proposalID string) (application.UndoResult, error)
}

// SyncHandler serves the apply/undo calendar boundary.
type SyncHandler struct {
	service   syncService
	responder responder
}

// NewSyncHandler constructs the handler.
func NewSyncHandler(service syncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{service: service, responder: newResponder(logger)}
}

type applyRequest struct {
	SessionID    string      `json:"session_id"`
	ProposalID   string      `json:"proposal_id"`
	Changes      []changeDTO `json:"changes"`
	OnlyAccepted bool        `json:"only_accepted"`
}

type applyResponse struct {
	Success           bool                        `json:"success"`
	AppliedChangeIDs  []string                    `json:"applied_change_ids"`
	Failed            []application.ChangeFailure `json:"failed,omitempty"`
	CredentialRevoked bool                        `json:"credential_revoked,omitempty"`
}

// Apply pushes the submitted changes to the calendar provider.
func (h *SyncHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.ProposalID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errMissingProposalID)
		return
	}

	changes := make([]schedule.Change, 0, len(req.Changes))
	for _, change := range req.Changes {
		changes = append(changes, change.toSchedule())
	}

	cred, _ := CredentialFromContext(r.Context())
	result, err := h.service.ApplyChanges(r.Context(), cred, application.ApplyParams{
		SessionID:    req.SessionID,
		ProposalID:   req.ProposalID,
		Changes:      changes,
		OnlyAccepted: req.OnlyAccepted,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	applied := result.AppliedChangeIDs
	if applied == nil {
		applied = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, applyResponse{
		Success:           result.Success,
		AppliedChangeIDs:  applied,
		Failed:            result.Failed,
		CredentialRevoked: result.CredentialRevoked,
	})
}

type undoRequest struct {
	ProposalID string `json:"proposal_id"`
}

// Undo reverses an applied proposal at most once.
func (h *SyncHandler) Undo(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req undoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.ProposalID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationError, errMissingProposalID)
		return
	}

	cred, _ := CredentialFromContext(r.Context())
	result, err := h.service.Undo(r.Context(), cred, req.ProposalID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}
