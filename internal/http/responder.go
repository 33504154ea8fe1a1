package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/calendar"
)

var (
	errBadRequestBody       = errors.New("request body is not valid JSON")
	errMissingCredential    = errors.New("a calendar credential is required")
	errMissingProposalID    = errors.New("proposal_id is required")
	errInvalidConversation  = errors.New("conversation id is required")
	errConversationNotFound = errors.New("conversation not found")
)

// Stable machine-readable error codes surfaced to clients.
const (
	codeValidationError      = "VALIDATION_ERROR"
	codeProposalInvalid      = "PROPOSAL_INVALID"
	codeNoChanges            = "NO_CHANGES"
	codeNotFound             = "NOT_FOUND"
	codeCalendarUnauthorized = "CALENDAR_UNAUTHORIZED"
	codeCalendarAPIError     = "CALENDAR_API_ERROR"
	codeNetworkError         = "NETWORK_ERROR"
	codeInternalError        = "INTERNAL_ERROR"
)

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Issues    []issueDTO        `json:"issues,omitempty"`
}

type issueDTO struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return handlerLogger(ctx, r.logger, "responder", "")
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "code", code, "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

// handleServiceError maps application and collaborator failures onto the
// stable error codes of the API.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternalError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: codeValidationError,
			Message:   "the request is invalid",
			Fields:    vErr.FieldErrors,
		})
		return
	}

	var pErr *application.ProposalInvalidError
	if errors.As(err, &pErr) {
		issues := make([]issueDTO, 0, len(pErr.Issues))
		for _, issue := range pErr.Issues {
			issues = append(issues, issueDTO{Path: issue.Path, Message: issue.Message})
		}
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeProposalInvalid,
			Message:   "the generated proposal failed validation",
			Issues:    issues,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrNoChanges):
		r.writeError(ctx, w, http.StatusBadRequest, codeNoChanges, err)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeNotFound, errConversationNotFound)
	case errors.Is(err, application.ErrModelUnavailable):
		r.writeError(ctx, w, http.StatusServiceUnavailable, codeNetworkError, err)
	case calendar.IsUnauthorized(err):
		r.writeError(ctx, w, http.StatusUnauthorized, codeCalendarUnauthorized, err)
	default:
		var cerr *calendar.ProviderError
		if errors.As(err, &cerr) {
			r.writeError(ctx, w, http.StatusBadGateway, codeCalendarAPIError, err)
			return
		}
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected failure", "error", err, "kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: codeInternalError,
			Message:   "an internal error occurred",
		})
	}
}
