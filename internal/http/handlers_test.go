package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/proposal"
	"github.com/Axelpuff/schedassist/internal/testfixtures"
)

type stubConversationService struct {
	clarifyQuestion string
	clarifyErr      error
	nextResult      application.NextResult
	nextErr         error
	snapshot        application.Conversation
	snapshotErr     error
	resetErr        error
	lastNextParams  application.NextParams
	lastCredential  calendar.Credential
}

func (s *stubConversationService) Clarify(ctx context.Context, params application.ClarifyParams) (string, error) {
	return s.clarifyQuestion, s.clarifyErr
}

func (s *stubConversationService) Next(ctx context.Context, cred calendar.Credential, params application.NextParams) (application.NextResult, error) {
	s.lastCredential = cred
	s.lastNextParams = params
	return s.nextResult, s.nextErr
}

func (s *stubConversationService) Snapshot(ctx context.Context, sessionID string) (application.Conversation, error) {
	return s.snapshot, s.snapshotErr
}

func (s *stubConversationService) Reset(ctx context.Context, sessionID string) error {
	return s.resetErr
}

type stubSyncService struct {
	applyResult application.ApplyResult
	applyErr    error
	undoResult  application.UndoResult
	undoErr     error
	lastApply   application.ApplyParams
}

func (s *stubSyncService) ApplyChanges(ctx context.Context, cred calendar.Credential, params application.ApplyParams) (application.ApplyResult, error) {
	s.lastApply = params
	return s.applyResult, s.applyErr
}

func (s *stubSyncService) Undo(ctx context.Context, cred calendar.Credential, proposalID string) (application.UndoResult, error) {
	return s.undoResult, s.undoErr
}

type stubActivity struct{ active int }

func (s *stubActivity) ActiveConversations(ctx context.Context) int { return s.active }

func newTestRouter(conversation *stubConversationService, sync *stubSyncService, activity *stubActivity) http.Handler {
	if activity == nil {
		activity = &stubActivity{}
	}
	return NewRouter(RouterConfig{
		Health:        NewHealthHandler(activity, nil),
		Conversations: NewConversationHandler(conversation, nil),
		Sync:          NewSyncHandler(sync, nil),
		APIMiddleware: []func(http.Handler) http.Handler{RequireCredential(nil)},
	})
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authorized {
		req.Header.Set("Authorization", "Bearer calendar-token")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubConversationService{}, &stubSyncService{}, &stubActivity{active: 3})

	recorder := doRequest(t, router, http.MethodGet, "/health", "", false)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload healthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" || payload.ActiveSessions != 3 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestAPIRequiresCredential(t *testing.T) {
	router := newTestRouter(&stubConversationService{}, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/next", `{"problem_text":"busy"}`, false)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ErrorCode != codeCalendarUnauthorized {
		t.Fatalf("expected %s, got %s", codeCalendarUnauthorized, payload.ErrorCode)
	}
}

func TestClarifyEndpoint(t *testing.T) {
	conversation := &stubConversationService{clarifyQuestion: "Which day is busiest?"}
	router := newTestRouter(conversation, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/clarify", `{"problem_text":"overloaded"}`, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload clarifyResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Question != "Which day is busiest?" {
		t.Fatalf("unexpected question %q", payload.Question)
	}
}

func TestNextEndpointProposal(t *testing.T) {
	stored := testfixtures.NewProposalFixture().Proposal()
	conversation := &stubConversationService{
		nextResult: application.NextResult{
			SessionID: "session-1",
			Status:    application.NextProposal,
			Proposal:  &stored,
		},
	}
	router := newTestRouter(conversation, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/next",
		`{"session_id":"session-1","problem_text":"busy","force_proposal":true,"scope":"day"}`, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload nextResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "proposal" || payload.Proposal == nil {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Proposal.ID != stored.ID {
		t.Fatalf("expected proposal %s, got %s", stored.ID, payload.Proposal.ID)
	}

	if conversation.lastCredential != "calendar-token" {
		t.Fatalf("credential not forwarded: %q", conversation.lastCredential)
	}
	if conversation.lastNextParams.Scope != application.ScopeDay || !conversation.lastNextParams.ForceProposal {
		t.Fatalf("params not decoded: %+v", conversation.lastNextParams)
	}
}

func TestNextEndpointProposalInvalid(t *testing.T) {
	conversation := &stubConversationService{
		nextErr: &application.ProposalInvalidError{Issues: []proposal.Issue{
			{Path: "summary", Message: "summary must describe the plan"},
		}},
	}
	router := newTestRouter(conversation, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/next", `{"problem_text":"busy"}`, true)
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ErrorCode != codeProposalInvalid || len(payload.Issues) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Issues[0].Path != "summary" {
		t.Fatalf("issue path lost: %+v", payload.Issues[0])
	}
}

func TestNextEndpointValidationError(t *testing.T) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{"problem_text": "problem text is required"}}
	conversation := &stubConversationService{nextErr: vErr}
	router := newTestRouter(conversation, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/next", `{}`, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ErrorCode != codeValidationError || payload.Fields["problem_text"] == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestApplyEndpoint(t *testing.T) {
	sync := &stubSyncService{
		applyResult: application.ApplyResult{
			Success:          true,
			AppliedChangeIDs: []string{"c-1", "c-2"},
		},
	}
	router := newTestRouter(&stubConversationService{}, sync, nil)

	body := `{
		"session_id": "session-1",
		"proposal_id": "proposal-1",
		"only_accepted": true,
		"changes": [
			{"id": "c-1", "type": "add", "accepted": "accepted",
			 "event": {"title": "Focus", "start": "2025-10-05T09:00:00Z", "end": "2025-10-05T10:00:00Z"}},
			{"id": "c-2", "type": "remove", "target_event_id": "event-9", "accepted": "accepted",
			 "event": {"title": "", "start": "0001-01-01T00:00:00Z", "end": "0001-01-01T00:00:00Z"}}
		]
	}`
	recorder := doRequest(t, router, http.MethodPost, "/api/apply", body, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload applyResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Success || len(payload.AppliedChangeIDs) != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	if sync.lastApply.ProposalID != "proposal-1" || !sync.lastApply.OnlyAccepted {
		t.Fatalf("params not decoded: %+v", sync.lastApply)
	}
	if len(sync.lastApply.Changes) != 2 || sync.lastApply.Changes[1].TargetEventID != "event-9" {
		t.Fatalf("changes not decoded: %+v", sync.lastApply.Changes)
	}
}

func TestApplyEndpointRequiresProposalID(t *testing.T) {
	router := newTestRouter(&stubConversationService{}, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/apply", `{"changes":[]}`, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestApplyEndpointNoChanges(t *testing.T) {
	sync := &stubSyncService{applyErr: application.ErrNoChanges}
	router := newTestRouter(&stubConversationService{}, sync, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/apply", `{"proposal_id":"p-1"}`, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	var payload errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ErrorCode != codeNoChanges {
		t.Fatalf("expected %s, got %s", codeNoChanges, payload.ErrorCode)
	}
}

func TestUndoEndpoint(t *testing.T) {
	sync := &stubSyncService{undoResult: application.UndoResult{Reverted: false}}
	router := newTestRouter(&stubConversationService{}, sync, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/undo", `{"proposal_id":"p-1"}`, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload application.UndoResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Reverted {
		t.Fatal("expected reverted false to pass through")
	}
}

func TestConversationSnapshotAndReset(t *testing.T) {
	conversation := &stubConversationService{
		snapshot: application.Conversation{
			ID:    "session-1",
			State: application.StateClarifying,
			Questions: []application.ClarifyingQuestion{
				{ID: "q-1", Text: "Which day?", Answered: true, Answer: "Tuesday"},
			},
		},
	}
	router := newTestRouter(conversation, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodGet, "/api/conversations/session-1", "", true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload conversationDTO
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.State != "clarifying" || len(payload.Questions) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	recorder = doRequest(t, router, http.MethodDelete, "/api/conversations/session-1", "", true)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
}

func TestConversationNotFound(t *testing.T) {
	conversation := &stubConversationService{snapshotErr: application.ErrNotFound}
	router := newTestRouter(conversation, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodGet, "/api/conversations/missing", "", true)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&stubConversationService{}, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodGet, "/api/next", "", true)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("unexpected Allow header %q", allow)
	}
}

func TestBadRequestBody(t *testing.T) {
	router := newTestRouter(&stubConversationService{}, &stubSyncService{}, nil)

	recorder := doRequest(t, router, http.MethodPost, "/api/next", `{"problem`, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}
